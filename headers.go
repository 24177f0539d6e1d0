package stickers

import (
	"strings"
	"sync"
)

// EmptyHeadersPrompt is asked before an edit leaves no headers at all.
const EmptyHeadersPrompt = "You have removed all headers. Continue with NO headers?"

// Headers is the ordered list of field names. It defines both the columns
// expected in an upload and the line order on each sticker. Names need not
// be unique. Every change is pushed to subscribers after the lock is
// released.
type Headers struct {
	mu     sync.Mutex
	list   []string
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func([]string)
}

// NewHeaders returns a list seeded with the cleaned initial names, or
// DefaultHeaders when none remain.
func NewHeaders(initial ...string) *Headers {
	list := CleanHeaders(initial)
	if len(list) == 0 {
		list = append(list, DefaultHeaders...)
	}
	return &Headers{list: list}
}

// CleanHeaders trims every name and drops the blank ones.
func CleanHeaders(list []string) []string {
	cleaned := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

// Get returns a copy of the current list.
func (h *Headers) Get() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.list...)
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.list)
}

// Add appends the trimmed name. Blank names are ignored.
func (h *Headers) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return h.update(func(list []string) ([]string, bool) {
		return append(list, name), true
	})
}

// Remove deletes the entry at index. Out of range indexes are ignored.
func (h *Headers) Remove(index int) bool {
	return h.update(func(list []string) ([]string, bool) {
		if index < 0 || index >= len(list) {
			return list, false
		}
		return append(list[:index], list[index+1:]...), true
	})
}

// Move shifts the entry at index by delta positions. Nothing happens when
// either end is out of range; positions do not wrap.
func (h *Headers) Move(index, delta int) bool {
	return h.update(func(list []string) ([]string, bool) {
		to := index + delta
		if delta == 0 || index < 0 || index >= len(list) || to < 0 || to >= len(list) {
			return list, false
		}
		item := list[index]
		list = append(list[:index], list[index+1:]...)
		list = append(list[:to], append([]string{item}, list[to:]...)...)
		return list, true
	})
}

// Rename replaces the entry at index with the trimmed name. Blank names and
// out of range indexes are ignored.
func (h *Headers) Rename(index int, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return h.update(func(list []string) ([]string, bool) {
		if index < 0 || index >= len(list) || list[index] == name {
			return list, false
		}
		list[index] = name
		return list, true
	})
}

// Replace swaps in a whole new list, trimmed and without blank entries. If
// nothing is left, confirm must agree to continue with no headers; when it
// does not, the current list is kept and Replace returns false.
func (h *Headers) Replace(list []string, confirm Confirmer) bool {
	cleaned := CleanHeaders(list)
	if len(cleaned) == 0 && !confirmed(confirm, EmptyHeadersPrompt) {
		return false
	}
	return h.update(func([]string) ([]string, bool) {
		return cleaned, true
	})
}

// Subscribe registers fn to receive the new list after every change. The
// returned function removes the subscription.
func (h *Headers) Subscribe(fn func([]string)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// update applies fn to a private copy of the list and, if fn reports a
// change, stores it and notifies subscribers.
func (h *Headers) update(fn func([]string) ([]string, bool)) bool {
	h.mu.Lock()
	next, changed := fn(append([]string{}, h.list...))
	if !changed {
		h.mu.Unlock()
		return false
	}
	h.list = next
	snapshot := append([]string{}, next...)
	subs := append([]subscriber(nil), h.subs...)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(append([]string{}, snapshot...))
	}
	return true
}
