package redis

import (
	"context"
	"fmt"

	"github.com/logandonley/typecore/pkg/fm"
	"github.com/redis/go-redis/v9"
)

// insertScript writes the record hash and set membership only when the hash
// does not exist yet. ARGV[1] is the identity, the rest are field/value pairs.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

var setActivatedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'activated', ARGV[1])
return 1
`)

// Catalog stores font records as Redis hashes plus a set of identities.
type Catalog struct {
	client redis.UniversalClient
}

var _ fm.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog on top of client
func NewCatalog(client redis.UniversalClient) *Catalog {
	return &Catalog{client: client}
}

func (c *Catalog) InsertIfAbsent(ctx context.Context, rec fm.FontRecord) (bool, error) {
	rec, err := fm.PrepareInsert(rec)
	if err != nil {
		return false, err
	}

	args := append([]interface{}{rec.Identity}, encodeRecord(rec)...)
	n, err := insertScript.Run(ctx, c.client, []string{FontKey(rec.Identity), AllFontsKey()}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("failed to insert font: %w", err)
	}
	return n == 1, nil
}

// InsertMany runs the insert script for every record in one pipeline.
// Each record stays atomic on its own; the batch as a whole is not.
func (c *Catalog) InsertMany(ctx context.Context, recs []fm.FontRecord) ([]bool, error) {
	prepared := make([]fm.FontRecord, len(recs))
	for i, rec := range recs {
		p, err := fm.PrepareInsert(rec)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}
	if len(prepared) == 0 {
		return []bool{}, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.Cmd, len(prepared))
	for i, rec := range prepared {
		args := append([]interface{}{rec.Identity}, encodeRecord(rec)...)
		// EVAL rather than EVALSHA: a NOSCRIPT reply inside a pipeline is not retried
		cmds[i] = insertScript.Eval(ctx, pipe, []string{FontKey(rec.Identity), AllFontsKey()}, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert fonts: %w", err)
	}

	inserted := make([]bool, len(cmds))
	for i, cmd := range cmds {
		n, err := cmd.Int()
		if err != nil {
			return nil, fmt.Errorf("failed to insert font: %w", err)
		}
		inserted[i] = n == 1
	}
	return inserted, nil
}

func (c *Catalog) ListAll(ctx context.Context) ([]fm.FontRecord, error) {
	ids, err := c.client.SMembers(ctx, AllFontsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get font identities: %w", err)
	}
	if len(ids) == 0 {
		return []fm.FontRecord{}, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, FontKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	records := make([]fm.FontRecord, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// set member whose hash is gone
			continue
		}
		records = append(records, decodeRecord(fields))
	}
	fm.SortRecords(records)
	return records, nil
}

func (c *Catalog) Get(ctx context.Context, identity string) (fm.FontRecord, error) {
	fields, err := c.client.HGetAll(ctx, FontKey(identity)).Result()
	if err != nil {
		return fm.FontRecord{}, fmt.Errorf("failed to get font: %w", err)
	}
	if len(fields) == 0 {
		return fm.FontRecord{}, fmt.Errorf("%w: %s", fm.ErrNotFound, identity)
	}
	return decodeRecord(fields), nil
}

func (c *Catalog) SetActivated(ctx context.Context, identity string, activated bool) error {
	n, err := setActivatedScript.Run(ctx, c.client, []string{FontKey(identity)}, encodeBool(activated)).Int()
	if err != nil {
		return fmt.Errorf("failed to update activation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", fm.ErrNotFound, identity)
	}
	return nil
}

// ClearAll reads the identity set and deletes every record hash plus the
// set itself. Each DEL names its key explicitly so the commands route on a
// cluster. A record inserted concurrently with a clear may survive it.
func (c *Catalog) ClearAll(ctx context.Context) error {
	ids, err := c.client.SMembers(ctx, AllFontsKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get font identities: %w", err)
	}

	pipe := c.client.Pipeline()
	for _, key := range clearKeys(ids) {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear fonts: %w", err)
	}
	return nil
}

// clearKeys lists the keys removed by ClearAll, the identity set last.
func clearKeys(ids []string) []string {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, FontKey(id))
	}
	return append(keys, AllFontsKey())
}

// encodeRecord flattens rec into HSET field/value pairs.
func encodeRecord(rec fm.FontRecord) []interface{} {
	return []interface{}{
		fieldIdentity, rec.Identity,
		fieldFamily, rec.Family,
		fieldSubfamily, rec.Subfamily,
		fieldFullName, rec.FullName,
		fieldPostscriptName, rec.PostscriptName,
		fieldActivated, encodeBool(rec.Activated),
		fieldSource, string(rec.Source),
		fieldRemoteURL, rec.RemoteURL,
	}
}

func decodeRecord(fields map[string]string) fm.FontRecord {
	return fm.FontRecord{
		Identity:       fields[fieldIdentity],
		Family:         fields[fieldFamily],
		Subfamily:      fields[fieldSubfamily],
		FullName:       fields[fieldFullName],
		PostscriptName: fields[fieldPostscriptName],
		Activated:      fields[fieldActivated] == "1",
		Source:         fm.Source(fields[fieldSource]),
		RemoteURL:      fields[fieldRemoteURL],
	}
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
