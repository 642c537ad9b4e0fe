package tablestore

import (
	"context"
	"fmt"
	"sync"
)

// Memory はマップベースのStore実装。
// テストおよびDBなしのローカル起動で使用する。
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	header []string
	rows   [][]string
}

// NewMemory はMemoryストアを生成する。
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]*memoryTable),
	}
}

// EnsureTable はテーブルを冪等に作成する。既存テーブルには何もしない。
func (s *Memory) EnsureTable(_ context.Context, table string, header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("tablestore: header must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; ok {
		return nil
	}
	s.tables[table] = &memoryTable{
		header: append([]string(nil), header...),
	}
	return nil
}

// AppendRow は1行を追記する。テーブル未作成の場合はErrTableNotFoundを返す。
func (s *Memory) AppendRow(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl, ok := s.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	if len(row) != len(tbl.header) {
		return fmt.Errorf("tablestore: row has %d cells, table %s has %d columns", len(row), table, len(tbl.header))
	}
	tbl.rows = append(tbl.rows, append([]string(nil), row...))
	return nil
}

// ReadAll は全行を挿入順で返す。テーブル未作成の場合はErrTableNotFoundを返す。
func (s *Memory) ReadAll(_ context.Context, table string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, ok := s.tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}

	result := make([][]string, len(tbl.rows))
	for i, row := range tbl.rows {
		result[i] = append([]string(nil), row...)
	}
	return result, nil
}

// Header はテーブルのヘッダーを返す。テスト検証用。
func (s *Memory) Header(table string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, ok := s.tables[table]
	if !ok {
		return nil, false
	}
	return append([]string(nil), tbl.header...), true
}

// compile-time interface check
var _ Store = (*Memory)(nil)
