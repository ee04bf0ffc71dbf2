package a11y

// SkipLink jumps straight to a region of the screen.
type SkipLink struct {
	Label  string
	Target string
}

var SkipLinks = []SkipLink{
	{"Saltar al contenido principal", "main-content"},
	{"Ir a Compras", "compras-content"},
	{"Ir a Ventas", "ventas-content"},
	{"Ir a Dashboard", "dashboard-content"},
}

// CycleTab moves the selection in a tab strip with the arrow keys, wrapping
// at both ends. Other keys and unknown tabs are not handled.
func CycleTab(tabs []string, active, key string) (string, bool) {
	idx := -1
	for i, t := range tabs {
		if t == active {
			idx = i
			break
		}
	}
	if idx < 0 || len(tabs) == 0 {
		return active, false
	}
	switch key {
	case "right":
		return tabs[(idx+1)%len(tabs)], true
	case "left":
		return tabs[(idx-1+len(tabs))%len(tabs)], true
	}
	return active, false
}
