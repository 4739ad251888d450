package service

// ResolveMinDifficulty evaluates the difficulty override cascade left to
// right and returns the first configured value, falling back to the system
// default. Callers pass overrides in precedence order (channel, then vault).
func ResolveMinDifficulty(systemDefault uint32, overrides ...*uint32) uint32 {
	for _, o := range overrides {
		if o != nil {
			return *o
		}
	}
	return systemDefault
}
