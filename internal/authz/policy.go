package authz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action は認可対象の操作名。
type Action string

// 定義済みアクション
const (
	ActionUsersCreate     Action = "users.create"
	ActionUsersUpdate     Action = "users.update"
	ActionUsersDelete     Action = "users.delete"
	ActionComputersCreate Action = "computers.create"
	ActionComputersUpdate Action = "computers.update"
	ActionComputersDelete Action = "computers.delete"
	ActionPrintersCreate  Action = "printers.create"
	ActionPrintersUpdate  Action = "printers.update"
	ActionPrintersDelete  Action = "printers.delete"
)

// AdminLevel はユーザー管理に必要なロールレベル。
const AdminLevel = 2

// Policy はアクションごとのしきい値表。起動時に構築し、以後は読み取り専用で扱う。
type Policy struct {
	thresholds map[Action]int
}

// policyFile はPOLICY_FILEのYAML表現。
//
//	thresholds:
//	  users.create: 2
//	  computers.delete: 2
type policyFile struct {
	Thresholds map[string]int `yaml:"thresholds"`
}

// DefaultPolicy は既定のしきい値表を返す。
// ユーザー管理はAdminLevel、資産の登録・更新・削除はログイン済みであれば許可する。
func DefaultPolicy() *Policy {
	return &Policy{thresholds: map[Action]int{
		ActionUsersCreate:     AdminLevel,
		ActionUsersUpdate:     AdminLevel,
		ActionUsersDelete:     AdminLevel,
		ActionComputersCreate: 1,
		ActionComputersUpdate: 1,
		ActionComputersDelete: 1,
		ActionPrintersCreate:  1,
		ActionPrintersUpdate:  1,
		ActionPrintersDelete:  1,
	}}
}

// LoadPolicy は既定値にYAMLファイルの内容を上書きしたPolicyを返す。
// pathが空の場合は既定値をそのまま返す。
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := p.merge(data); err != nil {
		return nil, err
	}
	return p, nil
}

// merge はYAMLのしきい値を既存の表に上書きする。
// 未知のキーやアクション名は打ち間違いとみなしてエラーにする。
func (p *Policy) merge(data []byte) error {
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}

	var unknown []string
	for action := range f.Thresholds {
		if _, ok := p.thresholds[Action(action)]; !ok {
			unknown = append(unknown, action)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown actions in policy file: %s", strings.Join(unknown, ", "))
	}

	for action, threshold := range f.Thresholds {
		if threshold < 0 {
			return fmt.Errorf("invalid threshold for %s: %d", action, threshold)
		}
		p.thresholds[Action(action)] = threshold
	}
	return nil
}

// Threshold はアクションのしきい値を返す。
// 未登録のアクションはAdminLevelを要求する（フェイルクローズ）。
func (p *Policy) Threshold(action Action) int {
	if t, ok := p.thresholds[action]; ok {
		return t
	}
	return AdminLevel
}

// Actions は登録済みアクションを名前順で返す。
func (p *Policy) Actions() []Action {
	actions := make([]Action, 0, len(p.thresholds))
	for a := range p.thresholds {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
