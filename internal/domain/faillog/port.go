package faillog

import "context"

// Repository defines local persistence for failure entries
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Latest(ctx context.Context, limit int) ([]*Entry, error)
}
