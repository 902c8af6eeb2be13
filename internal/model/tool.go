package model

import "time"

type Tool struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	ImageURL  string     `json:"image_url"`
	PlanIDs   []int64    `json:"plan_ids"`
	Plans     []ToolPlan `json:"plans"`
	CreatedAt time.Time  `json:"created_at"`
}

type ToolPlan struct {
	ID         int64   `json:"id"`
	ToolID     int64   `json:"tool_id"`
	Name       string  `json:"name"`
	TotalUsers int     `json:"total_users"`
	Price      float64 `json:"price"`
}
