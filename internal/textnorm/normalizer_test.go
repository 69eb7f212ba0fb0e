package textnorm

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Días", "dias"},
		{"GARANTÍA", "garantia"},
		{"Indemnización", "indemnizacion"},
		{"Año", "ano"},
		{"pingüino", "pinguino"},
		{"ya normalizado", "ya normalizado"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Fold(tc.in))
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"question marks", "¿Cuántos días de vacaciones tengo?", "cuantos dias de vacaciones tengo"},
		{"exclamation and commas", "¡Me echan, ayuda!", "me echan ayuda"},
		{"dots and surrounding space", "  art. 37.  ", "art 37"},
		{"other punctuation kept", "horas: 1712", "horas: 1712"},
		{"empty", "", ""},
		{"byte order mark", "\ufeff¿Vacaciones?\ufeff", "vacaciones"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Normalize(tc.in))
		})
	}
}

// spanishText generates strings drawn from an alphabet of accented letters,
// punctuation and whitespace.
type spanishText string

const alphabet = "abcdeñóáéíúüÁÉÍÓÚÑABCxyz ¿?¡!.,;:  \t0123456789"

func (spanishText) Generate(r *rand.Rand, size int) reflect.Value {
	letters := []rune(alphabet)
	n := r.Intn(size + 1)
	out := make([]rune, n)
	for i := range out {
		out[i] = letters[r.Intn(len(letters))]
	}
	return reflect.ValueOf(spanishText(out))
}

func TestNormalizer_NormalizeIsIdempotent(t *testing.T) {
	n := Default()

	prop := func(s spanishText) bool {
		once := n.Normalize(string(s))
		return n.Normalize(once) == once
	}
	require.NoError(t, quick.Check(prop, &quick.Config{MaxCount: 500}))

	for _, s := range []string{"¿Qué pasa si me ECHAN?", "Días libres.", "  ¡¡!!  ", "ÑANDÚ"} {
		once := n.Normalize(s)
		assert.Equal(t, once, n.Normalize(once), s)
	}
}

func TestNormalizer_Expand(t *testing.T) {
	n := Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trigger", "cuanto cobro", "cuanto cobro"},
		{"family illness", "mi madre esta mala", "mi madre esta mala enfermedad permiso familiar reposo alta"},
		{"dismissal", "me echan del trabajo", "me echan del trabajo despido improcedente finiquito"},
		{"holidays multiword trigger", "tengo dias libres", "tengo dias libres descanso anual natural"},
		{
			"several rules fire in table order",
			"me echan en vacaciones y mi padre esta enfermo",
			"me echan en vacaciones y mi padre esta enfermo enfermedad permiso familiar reposo alta despido improcedente finiquito descanso anual natural",
		},
		{"trigger as substring", "hospitalizado", "hospitalizado enfermedad permiso familiar reposo alta"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, n.Expand(tc.in))
		})
	}
}

func TestNormalizer_Terms(t *testing.T) {
	n := Default()

	t.Run("holidays question", func(t *testing.T) {
		q := n.Terms("¿Cuántos días de vacaciones tengo?")
		assert.Equal(t, []string{"cuantos", "dias", "vacaciones", "tengo", "descanso", "anual", "natural"}, q.Terms)
		assert.Equal(t, "cuantos dias de vacaciones tengo descanso anual natural", q.Normalized)
	})

	t.Run("stopwords and short tokens dropped", func(t *testing.T) {
		q := n.Terms("me echan del trabajo")
		assert.Equal(t, []string{"echan", "trabajo", "despido", "improcedente", "finiquito"}, q.Terms)
	})

	t.Run("short numbers kept", func(t *testing.T) {
		q := n.Terms("nivel 3 grupo 11 de 1712 h")
		assert.Equal(t, []string{"nivel", "3", "grupo", "11", "1712"}, q.Terms)
	})

	t.Run("empty input", func(t *testing.T) {
		q := n.Terms("")
		assert.Empty(t, q.Terms)
		assert.Equal(t, "", q.Normalized)
	})

	t.Run("byte order mark is blank", func(t *testing.T) {
		q := n.Terms("\ufeffvacaciones\ufeffjornada")
		assert.Equal(t, []string{"vacaciones", "jornada", "descanso", "anual", "natural"}, q.Terms)
	})

	t.Run("punctuation only", func(t *testing.T) {
		assert.Empty(t, n.Terms("¿?¡!.,").Terms)
	})
}

func TestNormalizer_ExpansionIsSuperset(t *testing.T) {
	plain := New(DefaultStopwords(), nil)
	expanding := Default()

	for _, q := range []string{"me duele la madre", "me botan mañana", "quiero vacaciones", "mi padre en el hospital"} {
		t.Run(q, func(t *testing.T) {
			base := plain.Terms(q).Terms
			expanded := expanding.Terms(q).Terms
			assert.Subset(t, expanded, base)
			assert.Greater(t, len(expanded), len(base))
		})
	}
}

func TestNew_FoldsTables(t *testing.T) {
	n := New([]string{"Él"}, []SynonymRule{{Triggers: []string{"Despedída"}, Expansion: "Despido"}})

	assert.True(t, n.IsStopword("el"))
	assert.True(t, n.IsStopword("ÉL"))
	assert.Equal(t, "me han despedida despido", n.Expand("me han despedida"))
	assert.Equal(t, []string{"despedida", "despido"}, n.Terms("él despedída").Terms)
}
