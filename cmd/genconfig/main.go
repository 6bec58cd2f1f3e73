// Command genconfig writes emuconf.default.toml from config.ExampleConfig,
// annotated with config.ConfigDocs.
//
// It runs through the go:generate directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/emuconf/internal/config"
)

// outPath is relative to internal/config, where go generate runs. The repo
// root's configdata.go embeds the result.
const outPath = "../../emuconf.default.toml"

func main() {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "genconfig: write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote emuconf.default.toml")
}

// render encodes cfg and interleaves docs as comments.
func render(cfg *config.Config, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# emuconf configuration",
		"# ///////////////////////////////////////////////",
		"",
	}
	var table string
	emitted := map[string]bool{}

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue

		case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
			out = appendOmitted(out, table, docs, emitted)
			table = strings.Trim(trimmed, "[] ")
			out = append(out, "", fmt.Sprintf("# ///// %s /////", title(table)), "")
			if doc, ok := docs[table]; ok {
				emitted[table] = true
				out = appendComment(out, doc.Comment)
			}
			out = append(out, trimmed)

		case strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, "="):
			out = append(out, trimmed)

		default:
			key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
			path := key
			if table != "" {
				path = table + "." + key
			}
			emitted[path] = true
			doc := docs[path]
			out = appendComment(out, doc.Comment)
			out = append(out, trimmed)
			for _, alt := range doc.Alternatives {
				out = append(out, "# "+alt)
			}
		}
	}
	out = appendOmitted(out, table, docs, emitted)
	out = appendOmittedTables(out, docs, emitted)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// appendOmitted documents fields of table the encoder skipped, such as
// omitempty fields holding their zero value.
func appendOmitted(out []string, table string, docs map[string]config.FieldDoc, emitted map[string]bool) []string {
	if table == "" {
		return out
	}
	prefix := table + "."
	var missing []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		missing = append(missing, path)
	}
	sort.Strings(missing)
	for _, path := range missing {
		out = append(out, "")
		out = appendComment(out, docs[path].Comment)
		for _, alt := range docs[path].Alternatives {
			out = append(out, "# "+alt)
		}
		emitted[path] = true
	}
	return out
}

// appendOmittedTables documents whole tables the encoder skipped, such as an
// empty [sections].
func appendOmittedTables(out []string, docs map[string]config.FieldDoc, emitted map[string]bool) []string {
	var missing []string
	for path := range docs {
		if !strings.Contains(path, ".") && !emitted[path] {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	for _, path := range missing {
		if path == "version" {
			continue
		}
		out = append(out, "", fmt.Sprintf("# ///// %s /////", title(path)), "")
		out = appendComment(out, docs[path].Comment)
		for _, alt := range docs[path].Alternatives {
			out = append(out, "# "+alt)
		}
	}
	return out
}

// title capitalizes the last dotted segment of a table name.
func title(table string) string {
	last := table[strings.LastIndex(table, ".")+1:]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
