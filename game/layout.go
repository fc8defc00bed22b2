package game

import "fmt"

const (
	MinLayout     = 1
	MaxLayout     = 7
	DefaultLayout = MinLayout
)

type Layout struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

func LayoutImage(id int) string {
	return fmt.Sprintf("/storage/layout/layout%d.png", id)
}

func Layouts() []Layout {
	layouts := make([]Layout, 0, MaxLayout-MinLayout+1)
	for id := MinLayout; id <= MaxLayout; id++ {
		layouts = append(layouts, Layout{ID: id, Image: LayoutImage(id)})
	}
	return layouts
}

// ResolveLayout maps an omitted layout (0) to the default and rejects values
// outside 1..7.
func ResolveLayout(id int) (int, error) {
	if id == 0 {
		return DefaultLayout, nil
	}
	if id < MinLayout || id > MaxLayout {
		return 0, invalid("layout", "must be between %d and %d", MinLayout, MaxLayout)
	}
	return id, nil
}
