package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atvirokodosprendimai/nbchanges/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"gorm.io/gorm"
)

// storedTimeFormat is fixed width so that text comparison orders by time.
const storedTimeFormat = "2006-01-02T15:04:05.000000Z"

type changeModel struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ChangedAt      string `gorm:"column:changed_at;not null"`
	Username       string `gorm:"column:username;not null"`
	Action         string `gorm:"column:action;not null"`
	ObjectType     string `gorm:"column:object_type;not null"`
	ObjectID       int64  `gorm:"column:object_id;not null"`
	ObjectRepr     string `gorm:"column:object_repr;not null"`
	RequestID      string `gorm:"column:request_id;not null"`
	PrechangeJSON  string `gorm:"column:prechange_json;not null"`
	PostchangeJSON string `gorm:"column:postchange_json;not null"`
}

func (changeModel) TableName() string {
	return "object_changes"
}

type ChangeRepository struct {
	db *gormsqlite.DB
}

func NewChangeRepository(db *gormsqlite.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// ReplaceAll drops every stored change and inserts records in order.
func (r *ChangeRepository) ReplaceAll(ctx context.Context, records []domain.ChangeRecord) (int, error) {
	models := make([]changeModel, 0, len(records))
	for i, rec := range records {
		model, err := toChangeModel(rec)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		models = append(models, model)
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Exec("DELETE FROM object_changes").Error; err != nil {
			return fmt.Errorf("clear changes: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&models, 200).Error; err != nil {
			return fmt.Errorf("insert changes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(models), nil
}

func (r *ChangeRepository) List(ctx context.Context, filter domain.ChangeFilter) (domain.ChangePage, error) {
	var (
		models []changeModel
		count  int64
	)
	filtered := changeFilterScope(filter)
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&changeModel{}).Scopes(filtered).Count(&count).Error; err != nil {
			return fmt.Errorf("count changes: %w", err)
		}

		order := "changed_at DESC, id DESC"
		if filter.Ascending {
			order = "changed_at ASC, id ASC"
		}
		return tx.Scopes(filtered).
			Order(order).
			Offset(filter.Offset).
			Limit(filter.Limit).
			Find(&models).Error
	})
	if err != nil {
		return domain.ChangePage{}, fmt.Errorf("list changes: %w", err)
	}

	page := domain.ChangePage{Count: count, Records: make([]domain.ChangeRecord, 0, len(models))}
	for _, model := range models {
		rec, err := toChangeDomain(model)
		if err != nil {
			return domain.ChangePage{}, err
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func changeFilterScope(filter domain.ChangeFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.Username != "" {
			q = q.Where("username = ?", filter.Username)
		}
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.ObjectID != 0 {
			q = q.Where("object_id = ?", filter.ObjectID)
		}
		if filter.RequestID != "" {
			q = q.Where("request_id = ?", filter.RequestID)
		}
		if !filter.Since.IsZero() {
			q = q.Where("changed_at >= ?", filter.Since.UTC().Format(storedTimeFormat))
		}
		if !filter.Until.IsZero() {
			q = q.Where("changed_at <= ?", filter.Until.UTC().Format(storedTimeFormat))
		}
		return q
	}
}

func toChangeModel(rec domain.ChangeRecord) (changeModel, error) {
	model := changeModel{
		ID:         rec.ID,
		Username:   rec.Username,
		Action:     rec.Action,
		ObjectType: rec.ObjectType,
		ObjectID:   rec.ObjectID,
		ObjectRepr: rec.ObjectRepr,
		RequestID:  rec.RequestID,
	}
	if rec.Time != "" {
		t, err := domain.ParseTimestamp(rec.Time)
		if err != nil {
			return changeModel{}, fmt.Errorf("parse time: %w", err)
		}
		model.ChangedAt = t.Format(storedTimeFormat)
	}

	var err error
	if model.PrechangeJSON, err = encodeData(rec.PrechangeData); err != nil {
		return changeModel{}, fmt.Errorf("encode prechange data: %w", err)
	}
	if model.PostchangeJSON, err = encodeData(rec.PostchangeData); err != nil {
		return changeModel{}, fmt.Errorf("encode postchange data: %w", err)
	}
	return model, nil
}

func toChangeDomain(model changeModel) (domain.ChangeRecord, error) {
	rec := domain.ChangeRecord{
		ID:         model.ID,
		Time:       model.ChangedAt,
		Username:   model.Username,
		Action:     model.Action,
		ObjectType: model.ObjectType,
		ObjectID:   model.ObjectID,
		ObjectRepr: model.ObjectRepr,
		RequestID:  model.RequestID,
	}

	var err error
	if rec.PrechangeData, err = decodeData(model.PrechangeJSON); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("decode prechange data of change %d: %w", model.ID, err)
	}
	if rec.PostchangeData, err = decodeData(model.PostchangeJSON); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("decode postchange data of change %d: %w", model.ID, err)
	}
	return rec, nil
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}
