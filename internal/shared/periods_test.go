package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonthWindow(t *testing.T) {
	w := MonthWindow(2024, time.February)
	require.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), w.From)
	require.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), w.To)

	// December rolls into January of the next year.
	w = MonthWindow(2023, time.December)
	require.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), w.To)
}

func TestWindowContains(t *testing.T) {
	w := MonthWindow(2024, time.January)

	require.True(t, w.Contains(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, w.Contains(time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, w.Contains(time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)))

	require.True(t, Window{}.Contains(time.Date(1999, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindowLabel(t *testing.T) {
	require.Equal(t, "2024/01/01 - 2024/01/31", MonthWindow(2024, time.January).Label())
	require.Equal(t, "2024/02/01 - 2024/02/29", MonthWindow(2024, time.February).Label())
	require.Equal(t, "2023/01/01 - 2023/12/31", YearWindow(2023).Label())
}

func TestParsePeriodLabel(t *testing.T) {
	for _, w := range []Window{
		MonthWindow(2024, time.January),
		MonthWindow(2024, time.February),
		YearWindow(2023),
	} {
		parsed, err := ParsePeriodLabel(w.Label())
		require.NoError(t, err)
		require.True(t, parsed.From.Equal(w.From), "label %s", w.Label())
		require.True(t, parsed.To.Equal(w.To), "label %s", w.Label())
	}
}

func TestParsePeriodLabelRejectsGarbage(t *testing.T) {
	for _, label := range []string{
		"",
		"2024/01/01",
		"2024/01/31 - 2024/01/01",
		"jam - butter",
	} {
		_, err := ParsePeriodLabel(label)
		require.ErrorIs(t, err, ErrInvalidPeriodLabel, "label %q", label)
	}
}

func TestMonthKey(t *testing.T) {
	require.Equal(t, "2024-03", MonthKey(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "2024-11", MonthKey(time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)))
}
