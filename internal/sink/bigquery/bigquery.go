// Package bigquery implements the BigQuery sink. Each Append runs one load
// job from newline-delimited JSON with WRITE_APPEND, so a file's records
// land atomically or not at all.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/ginjaninja78/tabular-loader/internal/config"
	"github.com/ginjaninja78/tabular-loader/internal/sink"
	"github.com/ginjaninja78/tabular-loader/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

func init() {
	sink.Register(config.SinkBigQuery, open)
}

// timestampLayout is a TIMESTAMP form BigQuery accepts in JSON loads.
const timestampLayout = "2006-01-02 15:04:05.000000-07:00"

// Schema is the destination table schema.
var Schema = bigquery.Schema{
	{Name: types.FieldId, Type: bigquery.StringFieldType},
	{Name: types.FieldFirstName, Type: bigquery.StringFieldType},
	{Name: types.FieldLastName, Type: bigquery.StringFieldType},
	{Name: types.FieldEmail, Type: bigquery.StringFieldType},
	{Name: types.FieldMobile, Type: bigquery.StringFieldType},
	{Name: types.FieldPostCode, Type: bigquery.StringFieldType},
	{Name: types.FieldDataSource, Type: bigquery.StringFieldType},
	{Name: types.FieldSourceCreatedDate, Type: bigquery.StringFieldType},
	{Name: types.FieldSourceModifiedDate, Type: bigquery.StringFieldType},
	{Name: types.FieldSourceFile, Type: bigquery.StringFieldType, Required: true},
	{
		Name:     types.FieldAttributes,
		Type:     bigquery.RecordFieldType,
		Repeated: true,
		Schema: bigquery.Schema{
			{Name: "Key", Type: bigquery.StringFieldType, Required: true},
			{Name: "Value", Type: bigquery.StringFieldType},
		},
	},
	{Name: types.FieldBQInsertedDate, Type: bigquery.TimestampFieldType, Required: true},
}

// Sink loads records into one BigQuery table.
type Sink struct {
	client *bigquery.Client
	table  *bigquery.Table
	create bool
	logger zerolog.Logger
}

func open(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (sink.Sink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: new client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &Sink{
		client: client,
		table:  client.Dataset(cfg.Dataset).Table(cfg.Table),
		create: cfg.ShouldCreateTable(),
		logger: logger.With().
			Str("sink", "bigquery").
			Str("table", cfg.Project+"."+cfg.Dataset+"."+cfg.Table).
			Logger(),
	}, nil
}

// Append runs one load job for all records and waits for it to finish.
func (s *Sink) Append(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	payload, err := EncodeNDJSON(records)
	if err != nil {
		return err
	}

	src := bigquery.NewReaderSource(bytes.NewReader(payload))
	src.SourceFormat = bigquery.JSON
	src.Schema = Schema

	loader := s.table.LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend
	if s.create {
		loader.CreateDisposition = bigquery.CreateIfNeeded
	} else {
		loader.CreateDisposition = bigquery.CreateNever
	}
	loader.JobID = "tabular_loader_" + uuid.NewString()

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("bigquery: start load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("bigquery: wait for job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("bigquery: job %s: %w", job.ID(), err)
	}

	s.logger.Debug().Str("job", job.ID()).Int("rows", len(records)).Msg("load job done")
	return nil
}

// Close closes the client.
func (s *Sink) Close() error {
	return s.client.Close()
}

// =============================================================================
// ROW ENCODING
// =============================================================================

type jsonAttribute struct {
	Key   string  `json:"Key"`
	Value *string `json:"Value"`
}

type jsonRow struct {
	Id                 *string         `json:"Id"`
	FirstName          *string         `json:"FirstName"`
	LastName           *string         `json:"LastName"`
	Email              *string         `json:"Email"`
	Mobile             *string         `json:"Mobile"`
	PostCode           *string         `json:"PostCode"`
	DataSource         *string         `json:"DataSource"`
	SourceCreatedDate  *string         `json:"SourceCreatedDate"`
	SourceModifiedDate *string         `json:"SourceModifiedDate"`
	SourceFile         string          `json:"SourceFile"`
	Attributes         []jsonAttribute `json:"Attributes"`
	BQInsertedDate     string          `json:"BQInsertedDate"`
}

// EncodeNDJSON writes one JSON object per record, newline separated, in
// the layout of Schema.
func EncodeNDJSON(records []types.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, r := range records {
		attrs := make([]jsonAttribute, len(r.Attributes))
		for j, a := range r.Attributes {
			attrs[j] = jsonAttribute{Key: a.Key, Value: a.Value}
		}
		row := jsonRow{
			Id:                 r.Id,
			FirstName:          r.FirstName,
			LastName:           r.LastName,
			Email:              r.Email,
			Mobile:             r.Mobile,
			PostCode:           r.PostCode,
			DataSource:         r.DataSource,
			SourceCreatedDate:  r.SourceCreatedDate,
			SourceModifiedDate: r.SourceModifiedDate,
			SourceFile:         r.SourceFile,
			Attributes:         attrs,
			BQInsertedDate:     formatTimestamp(r.BQInsertedDate),
		}
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("bigquery: encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
