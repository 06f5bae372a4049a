package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/config"
	"datatalk-backend/internal/chart"
	"datatalk-backend/internal/dataset"
	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/filter"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/store"
)

const defaultRowLimit = 100

type DatasetService interface {
	CreateDataset(ctx context.Context, req dto.CreateDatasetRequest) (*dto.DatasetResponse, error)
	GetDataset(ctx context.Context, sessionID string) (*dto.DatasetResponse, error)
	DeriveFilters(ctx context.Context, sessionID string, opts filter.Options) ([]model.FilterDefinition, error)
	RenderChart(ctx context.Context, sessionID string, req dto.ChartRequest) (*model.ChartSpec, error)
	FilterRows(ctx context.Context, sessionID string, req dto.RowsRequest) (*dto.RowsResponse, error)
}

type datasetService struct {
	sessions store.SessionStore
	maxRows  int
}

func NewDatasetService(sessions store.SessionStore, cfg *config.Config) DatasetService {
	return &datasetService{sessions: sessions, maxRows: cfg.Session.MaxRows}
}

func (s *datasetService) CreateDataset(ctx context.Context, req dto.CreateDatasetRequest) (*dto.DatasetResponse, error) {
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidDataset)
	}
	if s.maxRows > 0 && len(req.Rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows exceeds the limit of %d", ErrInvalidDataset, len(req.Rows), s.maxRows)
	}

	table := TableFromJSON(req.Columns, req.Rows)
	summary := dataset.Summarize(table)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Untitled dataset"
	}

	session, err := s.sessions.CreateSession(ctx, name, table, summary)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().
		Str("session_id", session.ID).
		Int("rows", summary.RowCount).
		Int("columns", summary.ColumnCount).
		Msg("Dataset uploaded")

	return &dto.DatasetResponse{
		SessionID: session.ID,
		Name:      session.Name,
		Summary:   summary,
		Filters:   filter.Derive(table, filter.Options{}),
	}, nil
}

func (s *datasetService) GetDataset(ctx context.Context, sessionID string) (*dto.DatasetResponse, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.DatasetResponse{SessionID: session.ID, Name: session.Name, Summary: session.Summary}, nil
}

func (s *datasetService) DeriveFilters(ctx context.Context, sessionID string, opts filter.Options) ([]model.FilterDefinition, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return filter.Derive(session.Table, opts), nil
}

// RenderChart reprocesses a chart against the rows matching the active
// filters. A chart that cannot be drawn comes back with empty data.
func (s *datasetService) RenderChart(ctx context.Context, sessionID string, req dto.ChartRequest) (*model.ChartSpec, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	table := model.Table{
		Columns: session.Table.Columns,
		Rows:    filter.Apply(session.Table.Rows, req.Filters),
	}
	spec := req.Chart
	spec.Data = chart.Process(table, &spec)
	return &spec, nil
}

func (s *datasetService) FilterRows(ctx context.Context, sessionID string, req dto.RowsRequest) (*dto.RowsResponse, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows := filter.Apply(session.Table.Rows, req.Filters)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRowLimit
	}
	resp := &dto.RowsResponse{Total: len(rows), Rows: rows}
	if len(rows) > limit {
		resp.Rows = rows[:limit]
	}
	return resp, nil
}

// TableFromJSON converts decoded JSON records into a table. Column order comes
// from columns when given, otherwise from the sorted union of record keys.
func TableFromJSON(columns []string, records []map[string]interface{}) model.Table {
	rows := make([]model.Row, 0, len(records))
	for _, record := range records {
		row := make(model.Row, len(record))
		for k, v := range record {
			row[k] = model.FromInterface(v)
		}
		rows = append(rows, row)
	}
	table := model.Table{Rows: rows}
	if len(columns) > 0 {
		table.Columns = append([]string(nil), columns...)
	} else {
		table.Columns = table.ColumnNames()
	}
	return table
}
