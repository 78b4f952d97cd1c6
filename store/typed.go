package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
)

// EncodeValue converts a value to its canonical (string, type tag) form.
// Scalars round-trip through strconv; everything else is JSON.
func EncodeValue(value any) (string, ValueType, error) {
	switch v := value.(type) {
	case string:
		return v, ValueTypeString, nil
	case bool:
		return strconv.FormatBool(v), ValueTypeBool, nil
	case int:
		return strconv.FormatInt(int64(v), 10), ValueTypeInt, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), ValueTypeInt, nil
	case int64:
		return strconv.FormatInt(v, 10), ValueTypeInt, nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), ValueTypeFloat, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), ValueTypeFloat, nil
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", "", errors.Wrap(err, "failed to encode preference value")
		}
		return string(raw), ValueTypeJSON, nil
	}
}

func decodeValue[T any](raw string) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *string:
		*p = raw
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, err
		}
		*p = b
	case *int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return out, err
		}
		*p = int(n)
	case *int32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return out, err
		}
		*p = int32(n)
	case *int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return out, err
		}
		*p = n
	case *float32:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return out, err
		}
		*p = float32(f)
	case *float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, err
		}
		*p = f
	default:
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// GetValue returns the decoded preference value for (user, category, key),
// or defaultValue when the entry is absent or cannot be decoded. Lookup and
// decode failures are logged, never returned.
func GetValue[T any](ctx context.Context, s *Store, userID int32, category, key string, defaultValue T) T {
	entry, err := s.GetPreference(ctx, userID, category, key)
	if err != nil {
		slog.Warn("failed to load preference, using default",
			slog.Int64("user_id", int64(userID)),
			slog.String("category", category),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return defaultValue
	}
	if entry == nil {
		return defaultValue
	}

	value, err := decodeValue[T](entry.Value)
	if err != nil {
		slog.Warn("failed to decode preference, using default",
			slog.Int64("user_id", int64(userID)),
			slog.String("category", category),
			slog.String("key", key),
			slog.String("value_type", string(entry.ValueType)),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// SetValue encodes the value, persists it and publishes the resulting
// PreferenceChangedEvent once the write has committed. Blank string values
// are not storable; delete the entry instead.
func SetValue[T any](ctx context.Context, s *Store, userID int32, category, key string, value T, description string) error {
	raw, valueType, err := EncodeValue(value)
	if err != nil {
		return err
	}

	_, err = s.UpsertPreference(ctx, &UpsertPreference{
		UserID:      userID,
		Category:    category,
		Key:         key,
		Value:       raw,
		ValueType:   valueType,
		Description: description,
	})
	return err
}
