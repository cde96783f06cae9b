package rewind

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// Persister writes a Controller's State to a Storage and reads it back.
	// Persistence is advisory: every failure is logged, counted, and then
	// treated as if nothing had been stored
	Persister[T any] struct {
		snapshotCodec[T]
		storage Storage
		logger  *zap.Logger
		metrics *Metrics
		writer  *writer
		config  PersistConfig
		mu      sync.Mutex
		lastSeq int64
		closed  bool
	}

	// snapshotCodec serializes States and sanitizes what it reads back
	snapshotCodec[T any] struct {
		codec   Codec
		version int
	}

	snapshot[T any] struct {
		Version int `json:"version" yaml:"version" toml:"version"`
		Past    []T `json:"past" yaml:"past" toml:"past"`
		Present T   `json:"present" yaml:"present" toml:"present"`
		Future  []T `json:"future" yaml:"future" toml:"future"`
	}

	element[T any] struct {
		V T `json:"v" yaml:"v" toml:"v"`
	}
)

var errMalformedSnapshot = errors.New("malformed snapshot")

// NewPersister creates a Persister over the provided Storage. Only the
// codec, logger, and metrics Options are consulted
func NewPersister[T any](
	storage Storage, cfg PersistConfig, opts ...Option[T],
) *Persister[T] {
	return newPersister(storage, cfg, makeOptions(opts))
}

func newPersister[T any](
	storage Storage, cfg PersistConfig, o *options[T],
) *Persister[T] {
	return &Persister[T]{
		snapshotCodec: newSnapshotCodec[T](o.codec, cfg.Version),
		storage:       storage,
		logger:        o.logger,
		metrics:       o.metrics,
		config:        cfg,
		writer:        newWriter(storage, cfg, o.logger, o.metrics),
	}
}

// Key returns the storage key snapshots are written under
func (p *Persister[_]) Key() string {
	return p.config.Key
}

// Write encodes the State and queues it for storage. It never blocks on the
// Storage and never fails
func (p *Persister[T]) Write(s *State[T]) {
	if s == nil {
		return
	}

	data, err := p.Encode(s)
	if err != nil {
		p.metrics.persistFailure(stageEncode)
		p.logger.Warn("Failed to encode snapshot",
			zap.String("key", p.config.Key),
			zap.Error(err),
		)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.writer.enqueue(writeRequest{
		key:      p.config.Key,
		value:    data,
		sequence: p.nextSequence(),
	})
}

func newSnapshotCodec[T any](c Codec, version int) snapshotCodec[T] {
	if c == nil {
		c = JSONCodec{}
	}
	return snapshotCodec[T]{codec: c, version: version}
}

// Encode returns the serialized form of the State, tagged with the
// configured schema version
func (c snapshotCodec[T]) Encode(s *State[T]) (string, error) {
	data, err := c.codec.Marshal(&snapshot[T]{
		Version: c.version,
		Past:    s.Past,
		Present: s.Present,
		Future:  s.Future,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Read retrieves and sanitizes the stored State. It returns nil when nothing
// usable is stored, including when the read itself fails
func (p *Persister[T]) Read(ctx context.Context, fallback T) *State[T] {
	if p.config.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ReadTimeout)
		defer cancel()
	}

	raw, err := p.storage.Get(ctx, p.config.Key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		p.metrics.persistFailure(stageRead)
		p.logger.Warn("Failed to read snapshot",
			zap.String("key", p.config.Key),
			zap.Error(err),
		)
		return nil
	}

	res := p.Sanitize(raw, fallback)
	if res == nil {
		p.metrics.persistFailure(stageDecode)
		p.logger.Warn("Discarding unusable snapshot",
			zap.String("key", p.config.Key),
			zap.Int("expected_version", p.config.Version),
		)
	}
	return res
}

// Sanitize decodes a serialized snapshot and repairs what it can. It returns
// nil if the data is not an object, carries the wrong schema version, or
// holds values that cannot be decoded as T. Non-array past and future
// fields become empty, and a missing present becomes fallback
func (c snapshotCodec[T]) Sanitize(data string, fallback T) *State[T] {
	raw, err := c.decodeGeneric([]byte(data))
	if err != nil {
		return nil
	}
	res, err := c.sanitize(raw, fallback)
	if err != nil {
		return nil
	}
	return res
}

// Remove deletes the stored snapshot
func (p *Persister[_]) Remove(ctx context.Context) error {
	return p.storage.Remove(ctx, p.config.Key)
}

// Close waits for queued writes to reach the Storage. Writes issued after
// Close are dropped
func (p *Persister[_]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.writer.stop()
	return nil
}

func (c snapshotCodec[T]) decodeGeneric(data []byte) (any, error) {
	if g, ok := c.codec.(genericDecoder); ok {
		return g.UnmarshalGeneric(data)
	}
	var res any
	if err := c.codec.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c snapshotCodec[T]) sanitize(raw any, fallback T) (*State[T], error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, errMalformedSnapshot
	}

	version, ok := asInt(obj["version"])
	if !ok || version != c.version {
		return nil, errMalformedSnapshot
	}

	past, err := c.decodeList(obj["past"])
	if err != nil {
		return nil, err
	}
	future, err := c.decodeList(obj["future"])
	if err != nil {
		return nil, err
	}

	present := fallback
	if v, ok := obj["present"]; ok && v != nil {
		if err := c.convert(v, &present); err != nil {
			return nil, err
		}
	}

	return &State[T]{
		Past:    past,
		Present: present,
		Future:  future,
	}, nil
}

func (c snapshotCodec[T]) decodeList(raw any) ([]T, error) {
	items, ok := raw.([]any)
	if !ok {
		return []T{}, nil
	}
	res := make([]T, len(items))
	for i, item := range items {
		if err := c.convert(item, &res[i]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// convert re-encodes a generic decoded value as T. The value travels inside
// a single-field record, since some codecs cannot encode a bare scalar
func (c snapshotCodec[T]) convert(raw any, target *T) error {
	data, err := c.codec.Marshal(map[string]any{"v": raw})
	if err != nil {
		return err
	}
	var res element[T]
	if err := c.codec.Unmarshal(data, &res); err != nil {
		return err
	}
	*target = res.V
	return nil
}

func (p *Persister[_]) nextSequence() int64 {
	seq := time.Now().UnixMicro()
	if seq <= p.lastSeq {
		seq = p.lastSeq + 1
	}
	p.lastSeq = seq
	return seq
}

func asObject(raw any) (map[string]any, bool) {
	switch obj := raw.(type) {
	case map[string]any:
		return obj, true
	case map[any]any:
		res := make(map[string]any, len(obj))
		for k, v := range obj {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			res[s] = v
		}
		return res, true
	default:
		return nil, false
	}
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}
