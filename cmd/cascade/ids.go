package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/cascade/internal/models"
)

// idsFile is the shape of an --ids-file: either a bare list or {ids: [...]}.
// JSON lists are valid YAML, so both formats are accepted.
type idsFile struct {
	IDs []string `yaml:"ids"`
}

// resolveIDs merges ids from positional args and an optional ids file,
// keeping order and dropping repeats.
func resolveIDs(args []string, path string) ([]string, error) {
	ids := append([]string(nil), args...)

	if path != "" {
		fromFile, err := readIDsFile(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}

	if len(out) == 0 {
		return nil, errors.New("no ids given (pass them as arguments or with --ids-file)")
	}
	return out, nil
}

func readIDsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ids file %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse ids file %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var list []string
	if node.Content[0].Kind == yaml.SequenceNode {
		err = node.Content[0].Decode(&list)
	} else {
		var f idsFile
		err = node.Content[0].Decode(&f)
		list = f.IDs
	}
	if err != nil {
		return nil, fmt.Errorf("ids file %s must be a list of ids or {ids: [...]}: %w", path, err)
	}
	return list, nil
}

// parseStatusFlags turns a comma-separated flag value into statuses.
func parseStatusFlags(values []string) ([]models.Status, error) {
	var parts []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	}
	return models.ParseStatuses(parts)
}

// statusHelp lists the statuses the service knows for a kind.
func statusHelp(statuses []models.Status) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
