// Package accounts provides a file-backed account directory: which game
// accounts each guild member has linked, and the nickname they want shown on
// rosters.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Member is one guild member's directory entry
type Member struct {
	Nickname string              `yaml:"nickname,omitempty"`
	Accounts map[string][]string `yaml:"accounts,omitempty"` // account type -> account names
}

// Guild holds the members of one guild
type Guild struct {
	Members map[uint64]Member `yaml:"members"`
}

// File is the on-disk layout of the directory
type File struct {
	Guilds map[uint64]Guild `yaml:"guilds"`
}

// Directory answers account lookups from an in-memory copy of a YAML file
type Directory struct {
	mu     sync.RWMutex
	guilds map[uint64]Guild
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{guilds: make(map[uint64]Guild)}
}

// LoadFile reads a directory from path. A missing file yields an empty directory.
func LoadFile(path string) (*Directory, error) {
	d := NewDirectory()
	if path == "" {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	if err := d.Parse(data); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}
	return d, nil
}

// Parse replaces the directory contents with the YAML document in data
func (d *Directory) Parse(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Guilds == nil {
		f.Guilds = make(map[uint64]Guild)
	}
	d.mu.Lock()
	d.guilds = f.Guilds
	d.mu.Unlock()
	return nil
}

// SaveFile writes the directory to path as YAML, replacing the file
func (d *Directory) SaveFile(path string) error {
	d.mu.RLock()
	data, err := yaml.Marshal(File{Guilds: d.guilds})
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create accounts directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write accounts file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}

// Link adds an account of the given type to a member, creating the entry if needed
func (d *Directory) Link(guildID, userID uint64, accountType, accountName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	guild := d.guilds[guildID]
	if guild.Members == nil {
		guild.Members = make(map[uint64]Member)
	}
	member := guild.Members[userID]
	if member.Accounts == nil {
		member.Accounts = make(map[string][]string)
	}
	accountType = strings.ToLower(accountType)
	for _, existing := range member.Accounts[accountType] {
		if strings.EqualFold(existing, accountName) {
			return
		}
	}
	member.Accounts[accountType] = append(member.Accounts[accountType], accountName)
	guild.Members[userID] = member
	d.guilds[guildID] = guild
}

// SetNickname sets the member's roster nickname
func (d *Directory) SetNickname(guildID, userID uint64, nickname string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	guild := d.guilds[guildID]
	if guild.Members == nil {
		guild.Members = make(map[uint64]Member)
	}
	member := guild.Members[userID]
	member.Nickname = nickname
	guild.Members[userID] = member
	d.guilds[guildID] = guild
}

// ListAccounts returns the member's accounts of accountType, sorted. Account
// types are matched case-insensitively.
func (d *Directory) ListAccounts(_ context.Context, guildID, userID uint64, accountType string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	member, ok := d.guilds[guildID].Members[userID]
	if !ok {
		return nil, nil
	}
	var accounts []string
	for typ, names := range member.Accounts {
		if strings.EqualFold(typ, accountType) {
			accounts = append(accounts, names...)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// DisplayName returns the member's configured nickname, or ""
func (d *Directory) DisplayName(_ context.Context, guildID, userID uint64) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.guilds[guildID].Members[userID].Nickname, nil
}
