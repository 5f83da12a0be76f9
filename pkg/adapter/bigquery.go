package adapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
)

// InsightSink receives one lead insight per completed chat turn
type InsightSink interface {
	PutLeadInsights(ctx context.Context, insights ...*model.LeadInsight) error
}

type bigqueryClient struct {
	client    *bigquery.Client
	datasetID string
	tableID   string
}

// BigQueryOption is a functional option for BigQuery client
type BigQueryOption func(*bigqueryClient)

func WithTable(tableID string) BigQueryOption {
	return func(bq *bigqueryClient) {
		bq.tableID = tableID
	}
}

// NewBigQuery creates a lead insight sink writing to projectID.datasetID
func NewBigQuery(ctx context.Context, projectID, datasetID string, opts ...BigQueryOption) (*bigqueryClient, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	bq := &bigqueryClient{
		client:    client,
		datasetID: datasetID,
		tableID:   "lead_insights",
	}

	for _, opt := range opts {
		opt(bq)
	}

	return bq, nil
}

type leadInsightRow struct {
	SessionID         string    `bigquery:"session_id"`
	TurnID            string    `bigquery:"turn_id"`
	Intent            string    `bigquery:"intent"`
	IntentScore       float64   `bigquery:"intent_score"`
	Signals           []string  `bigquery:"signals"`
	RecommendedAction string    `bigquery:"recommended_action"`
	LeadStatus        string    `bigquery:"lead_status"`
	HasEmail          bool      `bigquery:"has_email"`
	HasPhone          bool      `bigquery:"has_phone"`
	MessageCount      int64     `bigquery:"message_count"`
	CreatedAt         time.Time `bigquery:"created_at"`
}

func newLeadInsightRow(in *model.LeadInsight) *leadInsightRow {
	signals := make([]string, len(in.Signals))
	for i, s := range in.Signals {
		signals[i] = string(s)
	}
	return &leadInsightRow{
		SessionID:         string(in.SessionID),
		TurnID:            in.TurnID,
		Intent:            string(in.Intent),
		IntentScore:       in.IntentScore,
		Signals:           signals,
		RecommendedAction: string(in.RecommendedAction),
		LeadStatus:        string(in.LeadStatus),
		HasEmail:          in.HasEmail,
		HasPhone:          in.HasPhone,
		MessageCount:      int64(in.MessageCount),
		CreatedAt:         in.CreatedAt,
	}
}

// EnsureTable creates the insight table partitioned by day if it is missing
func (bq *bigqueryClient) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(leadInsightRow{})
	if err != nil {
		return goerr.Wrap(err, "failed to infer lead insight schema")
	}

	table := bq.client.Dataset(bq.datasetID).Table(bq.tableID)
	err = table.Create(ctx, &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "created_at",
		},
	})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil
		}
		return goerr.Wrap(err, "failed to create lead insight table",
			goerr.V("dataset", bq.datasetID),
			goerr.V("table", bq.tableID))
	}
	return nil
}

// PutLeadInsights streams insights into the table
func (bq *bigqueryClient) PutLeadInsights(ctx context.Context, insights ...*model.LeadInsight) error {
	if len(insights) == 0 {
		return nil
	}

	rows := make([]*leadInsightRow, len(insights))
	for i, in := range insights {
		rows[i] = newLeadInsightRow(in)
	}

	inserter := bq.client.Dataset(bq.datasetID).Table(bq.tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to insert lead insights",
			goerr.V("dataset", bq.datasetID),
			goerr.V("table", bq.tableID),
			goerr.V("count", len(rows)))
	}
	return nil
}

func (bq *bigqueryClient) Close() error {
	return bq.client.Close()
}
