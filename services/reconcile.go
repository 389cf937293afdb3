package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"rewmo/helpers"
	"rewmo/metrics"
	"rewmo/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RowOutcome string

const (
	RowMatched   RowOutcome = "matched"
	RowUnmatched RowOutcome = "unmatched"
	RowDuplicate RowOutcome = "duplicate"
	RowSkipped   RowOutcome = "skipped"
	RowError     RowOutcome = "error"
)

// FeedRow is one line of a network earnings report.
type FeedRow struct {
	TrackingID models.FlexibleString `json:"tracking_id"`
	OrderID    models.FlexibleString `json:"order_id"`
	Earnings   models.FlexibleString `json:"earnings"`
	Date       models.FlexibleString `json:"date"`
}

type RowResult struct {
	Line         int               `json:"line"`
	OrderID      string            `json:"order_id"`
	SubID        string            `json:"sub_id,omitempty"`
	MemberID     string            `json:"member_id,omitempty"`
	Attribution  AttributionMethod `json:"attribution,omitempty"`
	Outcome      RowOutcome        `json:"outcome"`
	GrossAmount  int64             `json:"gross_amount"`
	MemberShare  int64             `json:"member_share"`
	CommissionID *uuid.UUID        `json:"commission_id,omitempty"`
	Message      string            `json:"message,omitempty"`
	// Retryable marks store failures; bad input is never retryable.
	Retryable bool `json:"retryable,omitempty"`
}

type Summary struct {
	Network          string      `json:"network"`
	BatchID          *uuid.UUID  `json:"batch_id,omitempty"`
	Committed        bool        `json:"committed"`
	Matched          int         `json:"matched"`
	Unmatched        int         `json:"unmatched"`
	Duplicate        int         `json:"duplicate"`
	Skipped          int         `json:"skipped"`
	Errors           int         `json:"errors"`
	TotalEarnings    int64       `json:"total_earnings"`
	TotalMemberShare int64       `json:"total_member_share"`
	Rows             []RowResult `json:"rows"`
}

func (s *Summary) add(r RowResult) {
	switch r.Outcome {
	case RowMatched:
		s.Matched++
		s.TotalEarnings += r.GrossAmount
		s.TotalMemberShare += r.MemberShare
	case RowUnmatched:
		s.Unmatched++
		s.TotalEarnings += r.GrossAmount
	case RowDuplicate:
		s.Duplicate++
	case RowSkipped:
		s.Skipped++
	case RowError:
		s.Errors++
	}
	s.Rows = append(s.Rows, r)
}

// Importer ingests earnings feeds in two phases: Preview/Stage computes what
// would happen without touching the ledger, Commit writes row by row.
type Importer struct {
	db       *gorm.DB
	resolver *Resolver
	ledger   *Ledger
	metrics  *metrics.Ledger
	now      func() time.Time
}

func NewImporter(db *gorm.DB, resolver *Resolver, ledger *Ledger, m *metrics.Ledger) *Importer {
	return &Importer{
		db:       db,
		resolver: resolver,
		ledger:   ledger,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// parsedRow is a FeedRow that passed validation.
type parsedRow struct {
	orderID   string
	subID     string
	gross     int64
	orderDate *time.Time
}

func parseRow(row FeedRow, res *RowResult) (*parsedRow, bool) {
	orderID := strings.TrimSpace(row.OrderID.String())
	res.OrderID = orderID
	if orderID == "" {
		res.Outcome = RowError
		res.Message = "missing order id"
		return nil, false
	}

	gross, err := ParseEarnings(row.Earnings.String())
	if err != nil {
		res.Outcome = RowError
		res.Message = err.Error()
		return nil, false
	}
	res.GrossAmount = gross
	if gross <= 0 {
		res.Outcome = RowSkipped
		res.Message = "non-positive earnings"
		return nil, false
	}

	subID, _ := helpers.ExtractSubID(row.TrackingID.String())
	res.SubID = subID

	return &parsedRow{
		orderID:   orderID,
		subID:     subID,
		gross:     gross,
		orderDate: ParseFeedDate(row.Date.String()),
	}, true
}

func (im *Importer) attribute(ctx context.Context, p *parsedRow, res *RowResult) (Attribution, bool) {
	attr, err := im.resolver.Resolve(ctx, p.subID)
	if err != nil {
		res.Outcome = RowError
		res.Message = err.Error()
		res.Retryable = true
		return attr, false
	}
	res.Attribution = attr.Method
	res.MemberID = attr.MemberID
	memberShare, _ := SplitShares(p.gross)
	res.MemberShare = memberShare
	if attr.Matched() {
		res.Outcome = RowMatched
	} else {
		res.Outcome = RowUnmatched
	}
	return attr, true
}

// Preview evaluates every row without writing to the ledger.
func (im *Importer) Preview(ctx context.Context, network string, rows []FeedRow) (*Summary, error) {
	network = normalizeNetwork(network)
	if network == "" {
		return nil, ErrInvalidCommission
	}

	summary := &Summary{Network: network, Rows: make([]RowResult, 0, len(rows))}
	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		res := RowResult{Line: i + 1}
		p, ok := parseRow(row, &res)
		if !ok {
			summary.add(res)
			continue
		}

		if first, dup := seen[p.orderID]; dup {
			res.Outcome = RowDuplicate
			res.Message = fmt.Sprintf("order repeated in feed, first seen on line %d", first)
			summary.add(res)
			continue
		}
		seen[p.orderID] = res.Line

		var existing int64
		if err := im.db.WithContext(ctx).Model(&models.Commission{}).
			Where("network = ? AND order_id = ?", network, p.orderID).
			Count(&existing).Error; err != nil {
			res.Outcome = RowError
			res.Message = err.Error()
			res.Retryable = true
			summary.add(res)
			continue
		}
		if existing > 0 {
			res.Outcome = RowDuplicate
			res.Message = "order already recorded"
			summary.add(res)
			continue
		}

		im.attribute(ctx, p, &res)
		summary.add(res)
	}
	return summary, nil
}

// Stage previews the feed and stores it for an operator to commit or discard.
func (im *Importer) Stage(ctx context.Context, network, filename string, rows []FeedRow) (*models.ImportBatch, *Summary, error) {
	summary, err := im.Preview(ctx, network, rows)
	if err != nil {
		return nil, nil, err
	}

	rawRows, err := json.Marshal(rows)
	if err != nil {
		return nil, nil, err
	}

	batch := models.ImportBatch{
		ID:        uuid.New(),
		Network:   summary.Network,
		Filename:  filename,
		Status:    models.BatchPreviewed,
		RowCount:  len(rows),
		Rows:      rawRows,
		CreatedAt: im.now(),
	}
	summary.BatchID = &batch.ID

	rawSummary, err := json.Marshal(summary)
	if err != nil {
		return nil, nil, err
	}
	batch.Summary = rawSummary

	if err := im.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, nil, fmt.Errorf("stage import batch: %w", err)
	}
	return &batch, summary, nil
}

// Commit writes a staged batch. The status flip is conditional so a batch
// can only ever be committed once.
func (im *Importer) Commit(ctx context.Context, batchID uuid.UUID) (*Summary, error) {
	db := im.db.WithContext(ctx)
	now := im.now()

	res := db.Model(&models.ImportBatch{}).
		Where("id = ? AND status = ?", batchID, models.BatchPreviewed).
		Updates(map[string]any{"status": models.BatchCommitted, "committed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}

	var batch models.ImportBatch
	if err := db.Where("id = ?", batchID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s is %s", ErrBatchNotCommittable, batchID, batch.Status)
	}

	var rows []FeedRow
	if err := json.Unmarshal(batch.Rows, &rows); err != nil {
		return nil, fmt.Errorf("decode batch rows: %w", err)
	}

	summary := im.CommitRows(ctx, batch.Network, &batch.ID, models.SourceImport, rows)

	raw, err := json.Marshal(summary)
	if err != nil {
		return summary, fmt.Errorf("encode commit summary: %w", err)
	}
	if err := db.Model(&models.ImportBatch{}).Where("id = ?", batch.ID).Update("summary", datatypes.JSON(raw)).Error; err != nil {
		return summary, fmt.Errorf("store commit summary: %w", err)
	}
	return summary, nil
}

// CommitRows records each row independently. Duplicates, including orders
// raced in by a concurrent import, are reported rather than failed.
func (im *Importer) CommitRows(ctx context.Context, network string, batchID *uuid.UUID, source string, rows []FeedRow) *Summary {
	network = normalizeNetwork(network)
	summary := &Summary{Network: network, BatchID: batchID, Committed: true, Rows: make([]RowResult, 0, len(rows))}

	for i, row := range rows {
		res := RowResult{Line: i + 1}
		p, ok := parseRow(row, &res)
		if !ok {
			im.finishRow(summary, res)
			continue
		}

		attr, ok := im.attribute(ctx, p, &res)
		if !ok {
			im.finishRow(summary, res)
			continue
		}

		c, err := im.ledger.Record(ctx, RecordInput{
			MemberID:    attr.MemberRef(),
			Network:     network,
			OrderID:     p.orderID,
			SubID:       p.subID,
			GrossAmount: p.gross,
			OrderDate:   p.orderDate,
			Source:      source,
			BatchID:     batchID,
		})
		switch {
		case errors.Is(err, ErrDuplicateOrder):
			res.Outcome = RowDuplicate
			res.Message = "order already recorded"
		case errors.Is(err, ErrInvalidCommission), errors.Is(err, ErrInvalidAmount):
			res.Outcome = RowError
			res.Message = err.Error()
		case err != nil:
			res.Outcome = RowError
			res.Message = err.Error()
			res.Retryable = true
		default:
			res.CommissionID = &c.ID
		}
		im.finishRow(summary, res)
	}
	return summary
}

func (im *Importer) finishRow(summary *Summary, res RowResult) {
	im.metrics.ImportRows.WithLabelValues(string(res.Outcome)).Inc()
	summary.add(res)
}

func (im *Importer) Discard(ctx context.Context, batchID uuid.UUID) error {
	db := im.db.WithContext(ctx)
	res := db.Model(&models.ImportBatch{}).
		Where("id = ? AND status = ?", batchID, models.BatchPreviewed).
		Update("status", models.BatchDiscarded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.ImportBatch{}).Where("id = ?", batchID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return fmt.Errorf("%w: %s", ErrBatchNotCommittable, batchID)
	}
	return nil
}

func (im *Importer) Batch(ctx context.Context, batchID uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := im.db.WithContext(ctx).Where("id = ?", batchID).First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return &batch, err
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ParseEarnings converts a decimal money string such as "$1,234.56" into
// minor units, rounding half away from zero to the cent.
func ParseEarnings(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "$")
	if sign == "" && (strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+")) {
		sign, s = s[:1], s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errors.New("missing earnings")
	}
	d, err := decimal.NewFromString(sign + s)
	if err != nil {
		return 0, fmt.Errorf("invalid earnings %q", raw)
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("earnings %q out of range", raw)
	}
	return cents.IntPart(), nil
}

var feedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseFeedDate returns nil for empty or unrecognised dates; the order date
// is informational only.
func ParseFeedDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var csvColumnAliases = map[string][]string{
	"tracking": {"tracking_id", "trackingid", "subid", "sub_id", "sid", "u1", "clickref", "afftrack", "subid1"},
	"order":    {"order_id", "orderid", "order", "order_number", "transaction_id"},
	"earnings": {"earnings", "commission", "amount", "payout", "sale_commission"},
	"date":     {"date", "order_date", "event_date", "transaction_date"},
}

// ParseCSV reads a header-led earnings report. Column names are matched
// case-insensitively against the common spellings used by networks.
func ParseCSV(r io.Reader) ([]FeedRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := map[string]int{}
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		for key, aliases := range csvColumnAliases {
			if _, done := index[key]; done {
				continue
			}
			for _, alias := range aliases {
				if name == alias {
					index[key] = i
					break
				}
			}
		}
	}
	for _, key := range []string{"order", "earnings"} {
		if _, ok := index[key]; !ok {
			return nil, fmt.Errorf("csv is missing a %s column", key)
		}
	}

	field := func(rec []string, key string) models.FlexibleString {
		i, ok := index[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return models.FlexibleString(strings.TrimSpace(rec[i]))
	}

	var rows []FeedRow
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, FeedRow{
			TrackingID: field(rec, "tracking"),
			OrderID:    field(rec, "order"),
			Earnings:   field(rec, "earnings"),
			Date:       field(rec, "date"),
		})
	}
	return rows, nil
}
