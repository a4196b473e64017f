package device

// MenuKind tags one entry in the device-selection menu data.
type MenuKind int

const (
	MenuDevice MenuKind = iota + 1
	MenuSeparator
	MenuRefresh
)

// MenuItem describes one device-menu entry. The core only produces the
// data; rendering belongs to whatever tray shell consumes it.
type MenuItem struct {
	Kind    MenuKind
	Device  ID
	Label   string
	Checked bool
}

const (
	defaultDeviceLabel = "Use Default Device"
	refreshLabel       = "🔄 Refresh Devices"
	preferredMark      = " ⭐"
)

// BuildMenu produces the device-selection menu entries for the current
// catalog: one checkable entry per detected device, the default-device
// entry, and a refresh entry. The preferred entry is checked and starred.
func BuildMenu(catalog Catalog, preferred ID) []MenuItem {
	items := make([]MenuItem, 0, len(catalog)+4)

	for _, id := range SortedIDs(catalog) {
		label := catalog[id]
		if id == preferred {
			label += preferredMark
		}
		items = append(items, MenuItem{
			Kind:    MenuDevice,
			Device:  id,
			Label:   label,
			Checked: id == preferred,
		})
	}

	if len(catalog) > 0 {
		items = append(items, MenuItem{Kind: MenuSeparator})
	}

	defaultLabel := defaultDeviceLabel
	if preferred == Default {
		defaultLabel += preferredMark
	}
	items = append(items, MenuItem{
		Kind:    MenuDevice,
		Device:  Default,
		Label:   defaultLabel,
		Checked: preferred == Default,
	})

	items = append(items, MenuItem{Kind: MenuSeparator})
	items = append(items, MenuItem{Kind: MenuRefresh, Label: refreshLabel})

	return items
}
