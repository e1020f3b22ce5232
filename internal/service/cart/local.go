package cart

import (
	"encoding/json"
	"fmt"

	"buildmart/internal/domain"
	"go.uber.org/zap"
)

// LocalStore holds a guest cart in memory, mirrored to Storage after every
// mutation. It is not safe for concurrent use; Facade serialises access.
type LocalStore struct {
	storage Storage
	logger  *zap.Logger
	lines   []domain.CartLine
}

// OpenLocal loads the persisted guest cart. Corrupt data is discarded and
// the store starts empty.
func OpenLocal(storage Storage, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LocalStore{storage: storage, logger: logger}
	s.lines = loadGuestCart(storage, logger)
	return s
}

// Lines returns a copy of the current lines.
func (s *LocalStore) Lines() []domain.CartLine {
	return cloneLines(s.lines)
}

// Reload replaces the in-memory lines with what storage currently holds.
func (s *LocalStore) Reload() {
	s.lines = loadGuestCart(s.storage, s.logger)
}

// Add inserts the line or increments the quantity of an existing line with
// the same identity key. It returns the resulting line. On a storage error
// the in-memory cart is left unchanged.
func (s *LocalStore) Add(line domain.CartLine) (domain.CartLine, error) {
	if line.Quantity < 1 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	next := cloneLines(s.lines)
	if idx := s.indexOf(line.IdentityKey); idx >= 0 {
		next[idx].Quantity += line.Quantity
		line = next[idx]
	} else {
		next = append(next, line)
	}
	if err := s.commit(next); err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

// Remove deletes the line with the given key. The bool is false when no such
// line exists, in which case storage is not touched.
func (s *LocalStore) Remove(identityKey string) (domain.CartLine, bool, error) {
	idx := s.indexOf(identityKey)
	if idx < 0 {
		return domain.CartLine{}, false, nil
	}
	removed := s.lines[idx]
	next := make([]domain.CartLine, 0, len(s.lines)-1)
	next = append(next, s.lines[:idx]...)
	next = append(next, s.lines[idx+1:]...)
	if err := s.commit(next); err != nil {
		return removed, true, err
	}
	return removed, true, nil
}

// SetQuantity sets an absolute quantity. Non-positive quantities remove the line.
func (s *LocalStore) SetQuantity(identityKey string, quantity int) (bool, error) {
	if quantity <= 0 {
		_, found, err := s.Remove(identityKey)
		return found, err
	}
	idx := s.indexOf(identityKey)
	if idx < 0 {
		return false, nil
	}
	next := cloneLines(s.lines)
	next[idx].Quantity = quantity
	return true, s.commit(next)
}

// Clear empties the cart and removes the storage key.
func (s *LocalStore) Clear() error {
	return s.commit(nil)
}

func (s *LocalStore) indexOf(identityKey string) int {
	for i := range s.lines {
		if s.lines[i].IdentityKey == identityKey {
			return i
		}
	}
	return -1
}

// commit writes next to storage and only then makes it the current cart.
func (s *LocalStore) commit(next []domain.CartLine) error {
	if len(next) == 0 {
		if err := s.storage.Remove(GuestCartKey); err != nil {
			return fmt.Errorf("remove guest cart: %w", err)
		}
		s.lines = nil
		return nil
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.storage.Set(GuestCartKey, string(raw)); err != nil {
		return fmt.Errorf("write guest cart: %w", err)
	}
	s.lines = next
	return nil
}

// loadGuestCart reads the guest cart straight from storage.
func loadGuestCart(storage Storage, logger *zap.Logger) []domain.CartLine {
	raw, ok, err := storage.Get(GuestCartKey)
	if err != nil {
		logger.Warn("guest cart: read failed", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		logger.Warn("guest cart: discarding corrupt data", zap.Error(err), zap.Int("bytes", len(raw)))
		if err := storage.Remove(GuestCartKey); err != nil {
			logger.Warn("guest cart: remove corrupt data failed", zap.Error(err))
		}
		return nil
	}
	return normalizeLines(lines)
}

// normalizeLines drops non-positive lines and folds duplicate identities.
func normalizeLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 || line.ProductID == "" {
			continue
		}
		variantID := ""
		if line.Variant != nil {
			variantID = line.Variant.ID
		}
		line.IdentityKey = IdentityKey(line.ProductID, line.Color, variantID)
		if i, ok := index[line.IdentityKey]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.IdentityKey] = len(out)
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return []domain.CartLine{}
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
