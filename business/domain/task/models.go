package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task represents one pending invocation inside the system. ID is the
// storage internal row identifier used to claim and delete the row.
type Task struct {
	ID       int64
	ResultID uuid.UUID //uuid.Nil for fire and forget tasks
	Schedule time.Time
	Crontab  string //empty for one shot tasks
	Module   string
	Name     string
	Args     []byte
}

// NewTask represents all of the required info for registering an invocation.
type NewTask struct {
	ResultID uuid.UUID
	Schedule time.Time
	Crontab  string
	Module   string
	Name     string
	Args     []byte
}

// Key returns the stable identity string used to resolve the function in the
// registry.
func (t Task) Key() string {
	return JoinKey(t.Module, t.Name)
}

// JoinKey builds the registry key from a module and name pair.
func JoinKey(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}

// SplitKey breaks a registry key into the module and name pair persisted in
// the store. The name is everything after the last dot.
func SplitKey(key string) (module string, name string) {
	idx := strings.LastIndex(key, ".")
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}
