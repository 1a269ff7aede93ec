package bib

import (
	"sync"

	"github.com/reflib/reflib/internal/groups"
)

// MetaData carries the library-level settings stored alongside the entries:
// file directories, the dialect, and the root of the group tree. Every setter
// publishes a MetaDataChanged event so that attached synchronizers can mirror
// the new state.
type MetaData struct {
	mu                   sync.RWMutex
	defaultFileDirectory string
	userFileDirectories  map[string]string
	mode                 Mode
	groupsRoot           *groups.TreeNode
	bus                  *bus
}

// NewMetaData returns empty metadata.
func NewMetaData() *MetaData {
	return &MetaData{
		userFileDirectories: make(map[string]string),
		bus:                 newBus(),
	}
}

// DefaultFileDirectory returns the library-wide file directory, shared by
// everyone who opens the library.
func (m *MetaData) DefaultFileDirectory() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultFileDirectory, m.defaultFileDirectory != ""
}

// SetDefaultFileDirectory sets the library-wide file directory. An empty
// value clears it.
func (m *MetaData) SetDefaultFileDirectory(dir string) {
	m.mu.Lock()
	m.defaultFileDirectory = dir
	m.mu.Unlock()
	m.changed()
}

// UserFileDirectory returns the file directory stored for the given
// user-host identity.
func (m *MetaData) UserFileDirectory(user string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir, ok := m.userFileDirectories[user]
	return dir, ok && dir != ""
}

// SetUserFileDirectory sets the file directory for the given user-host
// identity. An empty value clears it.
func (m *MetaData) SetUserFileDirectory(user, dir string) {
	m.mu.Lock()
	if dir == "" {
		delete(m.userFileDirectories, user)
	} else {
		m.userFileDirectories[user] = dir
	}
	m.mu.Unlock()
	m.changed()
}

// UserFileDirectories returns a copy of all per-user directories.
func (m *MetaData) UserFileDirectories() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dirs := make(map[string]string, len(m.userFileDirectories))
	for user, dir := range m.userFileDirectories {
		dirs[user] = dir
	}
	return dirs
}

// Mode returns the stored dialect, if one was set.
func (m *MetaData) Mode() (Mode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode, m.mode != ""
}

// SetMode stores the dialect.
func (m *MetaData) SetMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	m.changed()
}

// GroupsRoot returns the root of the group tree, if the library has groups.
func (m *MetaData) GroupsRoot() (*groups.TreeNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groupsRoot, m.groupsRoot != nil
}

// SetGroupsRoot stores the group tree root. Passing nil removes all groups.
func (m *MetaData) SetGroupsRoot(root *groups.TreeNode) {
	m.mu.Lock()
	m.groupsRoot = root
	m.mu.Unlock()
	m.changed()
}

// Subscribe registers a handler for MetaDataChanged events.
func (m *MetaData) Subscribe(handler func(Event)) *Subscription {
	return m.bus.subscribe(handler)
}

func (m *MetaData) changed() {
	m.bus.publish(Event{Kind: MetaDataChanged, MetaData: m})
}
