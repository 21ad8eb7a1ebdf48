package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource loads the reference catalog from the three static tables the
// data team maintains. Rows are read as given; no deduplication or validation
// happens here.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Load(ctx context.Context) (Data, error) {
	var data Data

	departments, err := s.loadDepartments(ctx)
	if err != nil {
		return Data{}, err
	}
	data.Departments = departments

	offices, err := s.loadOffices(ctx)
	if err != nil {
		return Data{}, err
	}
	data.Offices = offices

	jurisdictions, err := s.loadJurisdictions(ctx)
	if err != nil {
		return Data{}, err
	}
	data.Jurisdictions = jurisdictions

	return data, nil
}

func (s *PostgresSource) loadDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.name, c.name
		FROM catalog_departments d
		JOIN catalog_cities c ON c.department_id = d.id
		ORDER BY d.name, c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var (
		departments []Department
		current     *Department
	)
	for rows.Next() {
		var deptName, cityName string
		if err := rows.Scan(&deptName, &cityName); err != nil {
			return nil, fmt.Errorf("scan department row: %w", err)
		}
		if current == nil || current.Name != deptName {
			departments = append(departments, Department{Name: deptName})
			current = &departments[len(departments)-1]
		}
		current.Cities = append(current.Cities, cityName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate department rows: %w", err)
	}
	return departments, nil
}

func (s *PostgresSource) loadOffices(ctx context.Context) ([]JudicialOffice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, name, city
		FROM catalog_judicial_offices
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query judicial offices: %w", err)
	}
	defer rows.Close()

	var offices []JudicialOffice
	for rows.Next() {
		var o JudicialOffice
		if err := rows.Scan(&o.Code, &o.Name, &o.City); err != nil {
			return nil, fmt.Errorf("scan judicial office row: %w", err)
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judicial office rows: %w", err)
	}
	return offices, nil
}

func (s *PostgresSource) loadJurisdictions(ctx context.Context) ([]Jurisdiction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.key, j.name, p.key, p.name
		FROM catalog_jurisdictions j
		JOIN catalog_process_types p ON p.jurisdiction_key = j.key
		ORDER BY j.key, p.key
	`)
	if err != nil {
		return nil, fmt.Errorf("query jurisdictions: %w", err)
	}
	defer rows.Close()

	var (
		jurisdictions []Jurisdiction
		current       *Jurisdiction
	)
	for rows.Next() {
		var jKey, jName, pKey, pName string
		if err := rows.Scan(&jKey, &jName, &pKey, &pName); err != nil {
			return nil, fmt.Errorf("scan jurisdiction row: %w", err)
		}
		if current == nil || current.Key != jKey {
			jurisdictions = append(jurisdictions, Jurisdiction{Key: jKey, Name: jName})
			current = &jurisdictions[len(jurisdictions)-1]
		}
		current.ProcessTypes = append(current.ProcessTypes, ProcessType{Key: pKey, Name: pName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jurisdiction rows: %w", err)
	}
	return jurisdictions, nil
}
