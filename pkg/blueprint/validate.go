package blueprint

import "fmt"

// Validate checks the scene's internal consistency. Cross-file checks
// (participant ids resolving, goal transition targets existing) live in
// cmd/validate, which has the whole content directory in hand.
func (s *Scene) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scene id cannot be empty")
	}
	if len(s.Characters) == 0 {
		return fmt.Errorf("scene %q has no participants", s.ID)
	}
	seen := make(map[string]bool, len(s.Goals))
	for _, g := range s.Goals {
		if g.ID == "" {
			return fmt.Errorf("scene %q has a goal with empty id", s.ID)
		}
		if seen[g.ID] {
			return fmt.Errorf("scene %q has duplicate goal id %q", s.ID, g.ID)
		}
		seen[g.ID] = true
		if g.Description == "" {
			return fmt.Errorf("scene %q goal %q has no description", s.ID, g.ID)
		}
	}
	return nil
}

// Validate checks the character definition.
func (c *Character) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("character id cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("character %q has no display name", c.ID)
	}
	if c.Role == "" {
		return fmt.Errorf("character %q has no role", c.ID)
	}
	return nil
}
