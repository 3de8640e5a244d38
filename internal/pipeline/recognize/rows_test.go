package recognize

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(text string, x, y int) Fragment {
	return Fragment{Text: text, Box: image.Rect(x, y, x+50, y+20)}
}

func TestGroupRowsByVerticalBand(t *testing.T) {
	frags := []Fragment{
		frag("BUDI", 300, 102),
		frag("1202400186700123", 10, 100),
		frag("081234567890", 600, 110),
		frag("SITI", 300, 160),
		frag("1202400186700456", 10, 158),
	}

	rows := GroupRows(frags, 25)
	require.Len(t, rows, 2)
	assert.Equal(t, "1202400186700123 BUDI 081234567890", rows[0])
	assert.Equal(t, "1202400186700456 SITI", rows[1])
}

func TestGroupRowsSplitsBeyondTolerance(t *testing.T) {
	frags := []Fragment{
		frag("A", 0, 100),
		frag("B", 0, 126), // 26px below the anchor
	}
	rows := GroupRows(frags, 25)
	assert.Equal(t, []string{"A", "B"}, rows)
}

func TestGroupRowsAnchorIsFirstFragment(t *testing.T) {
	// Drift within tolerance of the anchor stays in the row even when
	// consecutive fragments are closer to each other than to the anchor.
	frags := []Fragment{
		frag("A", 0, 100),
		frag("B", 60, 115),
		frag("C", 120, 130), // 30px below the anchor, new row
	}
	rows := GroupRows(frags, 25)
	assert.Equal(t, []string{"A B", "C"}, rows)
}

func TestGroupRowsEmpty(t *testing.T) {
	assert.Nil(t, GroupRows(nil, 25))
}

func TestRowBounds(t *testing.T) {
	row := []Fragment{
		{Text: "A", Box: image.Rect(10, 100, 60, 120)},
		{Text: "B", Box: image.Rect(200, 95, 260, 125)},
	}
	assert.Equal(t, image.Rect(10, 95, 260, 125), RowBounds(row))
}
