package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatalk-backend/config"
	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/filter"
	"datatalk-backend/internal/handler"
	"datatalk-backend/internal/intent"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/orchestrator"
	"datatalk-backend/internal/repository"
	"datatalk-backend/internal/store"
)

func salesRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"region": "North", "units": 3.0, "date": "2024-01-01"},
		{"region": "South", "units": 5.0, "date": "2024-01-02"},
		{"region": "North", "units": 2.0, "date": "2024-01-03"},
		{"region": "East", "units": 7.0, "date": "2024-01-04"},
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Session.MaxRows = 10
	return cfg
}

func TestDatasetService_CreateAndFilter(t *testing.T) {
	ctx := context.Background()
	svc := NewDatasetService(store.NewInMemorySessionStore(), testConfig())

	created, err := svc.CreateDataset(ctx, dto.CreateDatasetRequest{Name: " sales ", Rows: salesRows()})
	require.NoError(t, err)
	assert.Equal(t, "sales", created.Name)
	assert.Equal(t, []string{"date", "region", "units"}, columnNames(created.Summary))
	assert.Equal(t, []string{"units"}, created.Summary.NumericColumns)
	assert.NotEmpty(t, created.Filters)

	rows, err := svc.FilterRows(ctx, created.SessionID, dto.RowsRequest{
		Filters: model.ActiveFilterSelection{"region": {Type: model.FilterCategorical, Values: []string{"North"}}},
		Limit:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Total)
	assert.Len(t, rows.Rows, 1)

	defs, err := svc.DeriveFilters(ctx, created.SessionID, filter.Options{Exclude: []string{"date", "units"}})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "region", defs[0].Key)
}

func columnNames(summary model.DataSummary) []string {
	out := make([]string, 0, len(summary.Columns))
	for _, c := range summary.Columns {
		out = append(out, c.Name)
	}
	return out
}

func TestDatasetService_RenderChartWithFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewDatasetService(store.NewInMemorySessionStore(), testConfig())
	created, err := svc.CreateDataset(ctx, dto.CreateDatasetRequest{Columns: []string{"region", "units", "date"}, Rows: salesRows()})
	require.NoError(t, err)

	chart, err := svc.RenderChart(ctx, created.SessionID, dto.ChartRequest{
		Chart:   model.ChartSpec{Type: model.ChartBar, X: "Region", Y: "Units", Aggregate: model.AggregateSum},
		Filters: model.ActiveFilterSelection{"region": {Type: model.FilterCategorical, Values: []string{"North", "East"}}},
	})
	require.NoError(t, err)
	require.Len(t, chart.Data, 2)
	assert.Equal(t, "East", chart.Data[0]["region"].String())
	assert.Equal(t, "region", chart.X)
}

func TestDatasetService_RejectsInvalidDatasets(t *testing.T) {
	svc := NewDatasetService(store.NewInMemorySessionStore(), testConfig())

	_, err := svc.CreateDataset(context.Background(), dto.CreateDatasetRequest{})
	assert.ErrorIs(t, err, ErrInvalidDataset)

	tooMany := make([]map[string]interface{}, 11)
	for i := range tooMany {
		tooMany[i] = map[string]interface{}{"a": float64(i)}
	}
	_, err = svc.CreateDataset(context.Background(), dto.CreateDatasetRequest{Rows: tooMany})
	assert.ErrorIs(t, err, ErrInvalidDataset)

	_, err = svc.GetDataset(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

type recordingProducer struct {
	mu     sync.Mutex
	events []model.QueryEvent
	err    error
}

func (p *recordingProducer) Publish(_ context.Context, events ...model.QueryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

type stubHandler struct{ resp *handler.Response }

func (stubHandler) Name() string                        { return "stub" }
func (stubHandler) CanHandle(model.AnalysisIntent) bool { return true }
func (h stubHandler) Handle(context.Context, *handler.Context) (*handler.Response, error) {
	copied := *h.resp
	return &copied, nil
}

func TestChatService_RecordsTurnsAndPublishes(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemorySessionStore()
	datasets := NewDatasetService(sessions, testConfig())
	created, err := datasets.CreateDataset(ctx, dto.CreateDatasetRequest{Rows: salesRows()})
	require.NoError(t, err)

	producer := &recordingProducer{err: errors.New("broker down")}
	orch := orchestrator.New(
		orchestrator.NewRegistry(stubHandler{resp: &handler.Response{
			Answer: "North and East lead.",
			Charts: []*model.ChartSpec{{Type: model.ChartBar, X: "region", Y: "units", Aggregate: model.AggregateSum}},
		}}),
		intent.NewHeuristicClassifier(), nil, nil,
	)
	svc := NewChatService(sessions, orch, producer)

	resp, err := svc.Chat(ctx, dto.ChatRequest{SessionID: created.SessionID, Message: "compare units by region"})
	require.NoError(t, err)
	assert.Equal(t, "North and East lead.", resp.Answer)
	require.Len(t, resp.Charts, 1)
	assert.Len(t, resp.Charts[0].Data, 3)
	assert.NotNil(t, resp.Insights)

	history, err := svc.History(ctx, created.SessionID, time.Time{})
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, model.RoleUser, history.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, history.Messages[1].Role)

	later, err := svc.History(ctx, created.SessionID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, later.Messages)

	require.Len(t, producer.events, 1)
	assert.Equal(t, created.SessionID, producer.events[0].SessionID)
	assert.Equal(t, 1, producer.events[0].ChartCount)
}

func TestChatService_HandlerErrorReturnsCode(t *testing.T) {
	ctx := context.Background()
	sessions := store.NewInMemorySessionStore()
	created, err := NewDatasetService(sessions, testConfig()).CreateDataset(ctx, dto.CreateDatasetRequest{Rows: salesRows()})
	require.NoError(t, err)

	orch := orchestrator.New(
		orchestrator.NewRegistry(stubHandler{resp: &handler.Response{Error: `pq: relation "rows" does not exist`}}),
		intent.NewHeuristicClassifier(), nil, nil,
	)
	svc := NewChatService(sessions, orch, &recordingProducer{})

	resp, err := svc.Chat(ctx, dto.ChatRequest{SessionID: created.SessionID, Message: "compare units by region"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.ErrorCodeAnalysisFailed, resp.ErrorCode)
	assert.NotContains(t, resp.Answer, "pq:")
	assert.NotEmpty(t, resp.Answer)
}

func TestChatService_UnknownSession(t *testing.T) {
	orch := orchestrator.New(orchestrator.NewRegistry(), intent.NewHeuristicClassifier(), nil, nil)
	svc := NewChatService(store.NewInMemorySessionStore(), orch, &recordingProducer{})

	_, err := svc.Chat(context.Background(), dto.ChatRequest{SessionID: "nope", Message: "hi"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

type memoryDashboards struct {
	dashboards map[string]*model.Dashboard
}

func (m *memoryDashboards) CreateDashboard(_ context.Context, d *model.Dashboard) error {
	m.dashboards[d.ID] = d
	return nil
}

func (m *memoryDashboards) AddChart(_ context.Context, id string, spec model.ChartSpec) (*model.DashboardChart, error) {
	d, ok := m.dashboards[id]
	if !ok {
		return nil, repository.ErrDashboardNotFound
	}
	chart := model.DashboardChart{DashboardID: id, Position: len(d.Charts), Spec: spec}
	d.Charts = append(d.Charts, chart)
	return &chart, nil
}

func (m *memoryDashboards) GetDashboard(_ context.Context, id string) (*model.Dashboard, error) {
	if d, ok := m.dashboards[id]; ok {
		return d, nil
	}
	return nil, repository.ErrDashboardNotFound
}

func TestDashboardService(t *testing.T) {
	ctx := context.Background()
	svc := NewDashboardService(&memoryDashboards{dashboards: map[string]*model.Dashboard{}})

	d, err := svc.CreateDashboard(ctx, dto.CreateDashboardRequest{Name: "Weekly"})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	chart, err := svc.AddChart(ctx, d.ID, dto.AddChartRequest{Chart: model.ChartSpec{Type: model.ChartPie, X: "region", Y: "units"}})
	require.NoError(t, err)
	assert.Equal(t, 0, chart.Position)

	_, err = svc.AddChart(ctx, "missing", dto.AddChartRequest{})
	assert.ErrorIs(t, err, repository.ErrDashboardNotFound)

	got, err := svc.GetDashboard(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Charts, 1)
}

func TestDashboardService_Disabled(t *testing.T) {
	svc := NewDashboardService(nil)
	_, err := svc.CreateDashboard(context.Background(), dto.CreateDashboardRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrDashboardsDisabled)
	_, err = svc.GetDashboard(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDashboardsDisabled)
}

type fakeConsumer struct {
	queue     []kafkaGo.Message
	committed []kafkaGo.Message
}

func (c *fakeConsumer) FetchMessage(ctx context.Context) (*model.QueryEvent, kafkaGo.Message, error) {
	if len(c.queue) == 0 {
		<-ctx.Done()
		return nil, kafkaGo.Message{}, ctx.Err()
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	if string(msg.Value) == "bad" {
		return nil, msg, errors.New("decode failed")
	}
	return &model.QueryEvent{ID: string(msg.Key), Question: string(msg.Value)}, msg, nil
}

func (c *fakeConsumer) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	c.committed = append(c.committed, msgs...)
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

type fakeQueryStore struct {
	stored []model.QueryEvent
	err    error
}

func (s *fakeQueryStore) StoreQueries(_ context.Context, events []model.QueryEvent) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, events...)
	return nil
}

func (s *fakeQueryStore) Close(context.Context) error { return nil }

func queryMessages() []kafkaGo.Message {
	return []kafkaGo.Message{
		{Topic: "query_events", Offset: 1, Key: []byte("1"), Value: []byte("total units")},
		{Topic: "query_events", Offset: 2, Key: []byte("2"), Value: []byte("bad")},
		{Topic: "query_events", Offset: 3, Key: []byte("3"), Value: []byte("by region")},
	}
}

func TestQueryHistoryConsumer_ProcessBatch(t *testing.T) {
	consumer := &fakeConsumer{queue: queryMessages()}
	qs := &fakeQueryStore{}
	cfg := &config.Config{}
	cfg.Kafka.BatchSize = 10
	cfg.Kafka.MaxBatchWait = 20 * time.Millisecond
	svc := NewQueryHistoryConsumerService(consumer, qs, cfg).(*queryHistoryConsumerService)

	require.NoError(t, svc.processBatch(context.Background()))
	assert.Len(t, qs.stored, 2)
	assert.Len(t, consumer.committed, 3, "undecodable messages are committed past")
}

func TestQueryHistoryConsumer_StoreFailureSkipsCommit(t *testing.T) {
	consumer := &fakeConsumer{queue: queryMessages()}
	qs := &fakeQueryStore{err: errors.New("cluster red")}
	cfg := &config.Config{}
	cfg.Kafka.BatchSize = 3
	svc := NewQueryHistoryConsumerService(consumer, qs, cfg).(*queryHistoryConsumerService)

	assert.Error(t, svc.processBatch(context.Background()))
	assert.Empty(t, consumer.committed)
}

func TestQueryHistoryConsumer_RunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.MaxBatchWait = 10 * time.Millisecond
	svc := NewQueryHistoryConsumerService(&fakeConsumer{}, &fakeQueryStore{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go svc.Run(ctx, &wg)
	time.Sleep(30 * time.Millisecond)
	cancel()
	wg.Wait()
}
