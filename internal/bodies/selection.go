package bodies

// Selection tracks at most one selected and one followed body by name.
type Selection struct {
	selected string
	followed string
}

func (s *Selection) Selected() (string, bool) { return s.selected, s.selected != "" }
func (s *Selection) Followed() (string, bool) { return s.followed, s.followed != "" }

// Select reports whether the selection changed.
func (s *Selection) Select(name string) bool {
	if s.selected == name {
		return false
	}
	s.selected = name
	return true
}

// Clear drops the selection. Follow is independent and stays.
func (s *Selection) Clear() bool { return s.Select("") }

// ToggleFollow stops following when a body is followed, otherwise starts
// following the selected body (if any).
func (s *Selection) ToggleFollow() {
	if s.followed != "" {
		s.followed = ""
		return
	}
	s.followed = s.selected
}

func (s *Selection) Follow(name string) { s.followed = name }

// Reconcile drops references to bodies missing from c. It reports whether
// the selection and the follow target were dropped.
func (s *Selection) Reconcile(c *Cache) (selectionLost, followLost bool) {
	if s.selected != "" {
		if _, ok := c.Find(s.selected); !ok {
			s.selected = ""
			selectionLost = true
		}
	}
	if s.followed != "" {
		if _, ok := c.Find(s.followed); !ok {
			s.followed = ""
			followLost = true
		}
	}
	return selectionLost, followLost
}
