package baseline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func image(t time.Time) raster.IndexImage {
	return raster.IndexImage{
		Date: t,
		Path: fmt.Sprintf("lztmre_p104r072_%s_dc4mz.img", t.Format("20060102")),
		Band: raster.NewBand(1, 1),
	}
}

func mustWindow(t *testing.T, start, end string) Window {
	w, err := NewWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestSelectOnePerYear(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	candidates := []raster.IndexImage{
		image(day(2020, time.July, 10)),
		image(day(2020, time.October, 2)), // closest to window end in 2020
		image(day(2020, time.November, 5)), // outside window
		image(day(2021, time.August, 1)),
		image(day(2022, time.September, 30)),
		image(day(2023, time.July, 20)),
		image(day(2023, time.August, 20)), // after start date
	}
	start := day(2023, time.July, 24)

	ens, err := Select(candidates, w, 10, start)
	require.NoError(t, err)
	assert.False(t, ens.UsedFallback)
	assert.Equal(t, []time.Time{
		day(2020, time.October, 2),
		day(2021, time.August, 1),
		day(2022, time.September, 30),
		day(2023, time.July, 20),
	}, ens.Dates())
}

func TestSelectLookbackBoundsYears(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	var candidates []raster.IndexImage
	for y := 2005; y <= 2023; y++ {
		candidates = append(candidates, image(day(y, time.July, 15)))
	}

	ens, err := Select(candidates, w, 10, day(2023, time.July, 24))
	require.NoError(t, err)
	require.Equal(t, 10, ens.Len())
	assert.Equal(t, 2014, ens.Members[0].Date.Year())
	assert.Equal(t, 2023, ens.Members[9].Date.Year())
}

func TestSelectTieGoesToLaterDate(t *testing.T) {
	w := mustWindow(t, "0701", "0731")
	a := image(day(2021, time.July, 20))
	b := image(day(2021, time.July, 20))
	b.Path = "b.img"
	c := image(day(2022, time.July, 1))

	ens, err := Select([]raster.IndexImage{c, b, a}, w, 5, day(2022, time.July, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, ens.Len())
	assert.Equal(t, day(2021, time.July, 20), ens.Members[0].Date)
}

func TestSelectFallsBackToAllWindowImages(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	candidates := []raster.IndexImage{
		image(day(2023, time.July, 2)),
		image(day(2023, time.July, 18)),
		image(day(2010, time.August, 1)), // beyond lookback
	}

	ens, err := Select(candidates, w, 3, day(2023, time.July, 24))
	require.NoError(t, err)
	assert.True(t, ens.UsedFallback)
	assert.Equal(t, []time.Time{
		day(2010, time.August, 1),
		day(2023, time.July, 2),
		day(2023, time.July, 18),
	}, ens.Dates())
}

func TestSelectInsufficientBaseline(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	candidates := []raster.IndexImage{
		image(day(2023, time.July, 2)),
		image(day(2023, time.December, 2)),
	}

	_, err := Select(candidates, w, 10, day(2023, time.July, 24))
	var insufficient *InsufficientBaselineError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Found)
}

func TestSelectIsDeterministic(t *testing.T) {
	w := mustWindow(t, "0601", "0930")
	candidates := []raster.IndexImage{
		image(day(2019, time.June, 5)),
		image(day(2019, time.September, 1)),
		image(day(2020, time.July, 7)),
		image(day(2021, time.August, 8)),
		image(day(2021, time.August, 9)),
	}
	reversed := make([]raster.IndexImage, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	start := day(2022, time.June, 30)

	first, err := Select(candidates, w, 10, start)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Select(reversed, w, 10, start)
		require.NoError(t, err)
		assert.Equal(t, first.Dates(), again.Dates())
	}
}

func TestSelectRejectsBadArguments(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	_, err := Select(nil, w, 0, day(2023, time.July, 24))
	assert.ErrorIs(t, err, ErrInvalidLookback)

	_, err = Select(nil, Window{Start: MonthDay{time.November, 1}, End: MonthDay{time.March, 1}}, 5, day(2023, time.July, 24))
	assert.ErrorIs(t, err, ErrWindowWraps)
}

func TestSelectNearest(t *testing.T) {
	w := mustWindow(t, "0701", "1031")
	candidates := []raster.IndexImage{
		image(day(2024, time.August, 20)),
		image(day(2024, time.September, 11)),
		image(day(2024, time.November, 30)),
	}

	got, err := SelectNearest(candidates, day(2024, time.August, 31), w)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.August, 20), got.Date)

	got, err = SelectNearest(candidates, day(2024, time.November, 30), w)
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.November, 30), got.Date, "exact match wins even outside the window")

	_, err = SelectNearest([]raster.IndexImage{image(day(2024, time.January, 5))}, day(2024, time.August, 31), w)
	assert.ErrorIs(t, err, ErrNoIndexImage)
}
