package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/emuconf/internal/migrate"
)

func init() {
	migrate.Config.Register(migrate.Step{
		Version:     2,
		Description: "group flat v1 keys into [dirs], [log] and [flush]",
		Upgrade:     upgradeV2,
	})
}

// v1Moves maps flat v1 keys to their v2 table and key.
var v1Moves = []struct {
	old, table, key string
}{
	{"user_dir", "dirs", "user"},
	{"sys_dir", "dirs", "sys"},
	{"log_level", "log", "level"},
	{"notify_emulator", "flush", "notify_runtime"},
}

// upgradeV2 rewrites a v1 document. Keys it does not know are kept.
func upgradeV2(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	for _, m := range v1Moves {
		v, ok := doc[m.old]
		if !ok {
			continue
		}
		delete(doc, m.old)
		table, ok := doc[m.table].(map[string]any)
		if !ok {
			table = map[string]any{}
			doc[m.table] = table
		}
		if _, exists := table[m.key]; !exists {
			table[m.key] = v
		}
	}
	doc["version"] = 2

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}
