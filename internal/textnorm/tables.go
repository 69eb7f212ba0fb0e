package textnorm

// DefaultStopwords returns the Spanish function words ignored in queries.
func DefaultStopwords() []string {
	return []string{
		"el", "la", "los", "las", "un", "una", "de", "del", "a", "ante", "con", "en", "para", "por",
		"y", "o", "que", "si", "mi", "tu", "su", "es", "son", "al",
	}
}

// DefaultSynonyms returns the colloquial-to-legal expansions.
func DefaultSynonyms() []SynonymRule {
	return []SynonymRule{
		{
			Triggers:  []string{"malo", "enfermo", "hospital", "padre", "madre"},
			Expansion: "enfermedad permiso familiar reposo alta",
		},
		{
			Triggers:  []string{"echan", "botan", "despedido"},
			Expansion: "despido improcedente finiquito",
		},
		{
			Triggers:  []string{"vacaciones", "dias libres"},
			Expansion: "descanso anual natural",
		},
	}
}
