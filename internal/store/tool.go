package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/toolshub/internal/model"
)

type ToolStore struct {
	db *sql.DB
}

func NewToolStore(db *sql.DB) *ToolStore {
	return &ToolStore{db: db}
}

func scanPlan(scanner interface{ Scan(...any) error }) (*model.ToolPlan, error) {
	var p model.ToolPlan
	err := scanner.Scan(&p.ID, &p.ToolID, &p.Name, &p.TotalUsers, &p.Price)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const planCols = `id, tool_id, name, total_users, price`

// List returns every tool with its plans attached, ordered by name.
func (s *ToolStore) List() ([]model.Tool, error) {
	rows, err := s.db.Query(`SELECT id, name, image_url, created_at FROM tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	var tools []model.Tool
	index := make(map[int64]int)
	for rows.Next() {
		var t model.Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.ImageURL, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		t.PlanIDs = []int64{}
		t.Plans = []model.ToolPlan{}
		index[t.ID] = len(tools)
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	planRows, err := s.db.Query(`SELECT ` + planCols + ` FROM tool_plans ORDER BY price, id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer planRows.Close()

	for planRows.Next() {
		p, err := scanPlan(planRows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if i, ok := index[p.ToolID]; ok {
			tools[i].PlanIDs = append(tools[i].PlanIDs, p.ID)
			tools[i].Plans = append(tools[i].Plans, *p)
		}
	}
	return tools, planRows.Err()
}

func (s *ToolStore) GetPlan(id int64) (*model.ToolPlan, error) {
	row := s.db.QueryRow(`SELECT `+planCols+` FROM tool_plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (s *ToolStore) Create(name, imageURL string) (*model.Tool, error) {
	result, err := s.db.Exec(`INSERT INTO tools (name, image_url) VALUES (?, ?)`, name, imageURL)
	if err != nil {
		return nil, fmt.Errorf("insert tool: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	var t model.Tool
	err = s.db.QueryRow(`SELECT id, name, image_url, created_at FROM tools WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.ImageURL, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get tool: %w", err)
	}
	t.PlanIDs = []int64{}
	t.Plans = []model.ToolPlan{}
	return &t, nil
}

func (s *ToolStore) CreatePlan(toolID int64, name string, totalUsers int, price float64) (*model.ToolPlan, error) {
	result, err := s.db.Exec(
		`INSERT INTO tool_plans (tool_id, name, total_users, price) VALUES (?, ?, ?, ?)`,
		toolID, name, totalUsers, price,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPlan(id)
}
