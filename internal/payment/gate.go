package payment

// Gate is the set of payment methods offered for a shipping country.
type Gate struct {
	Country  string
	Visible  []Method
	Default  Method
	ShowTabs bool
}

// GateFor filters the method table for country. Card is always visible, so Default is
// never empty and a country with no local methods gets exactly one option.
func GateFor(country string) Gate {
	g := Gate{Country: country}
	for _, m := range methods {
		if m.EligibleIn(country) {
			g.Visible = append(g.Visible, m)
		}
	}
	g.Default = g.Visible[0]
	g.ShowTabs = len(g.Visible) > 1
	return g
}

// Offers reports whether id is among the visible methods.
func (g Gate) Offers(id string) bool {
	for _, m := range g.Visible {
		if m.ID == id {
			return true
		}
	}
	return false
}

// InfoPanel names a block of method-specific instructions in the checkout form.
type InfoPanel string

const (
	PanelCard      InfoPanel = "card"
	PanelSEPADebit InfoPanel = "sepa_debit"
	PanelWeChat    InfoPanel = "wechat"
	PanelRedirect  InfoPanel = "redirect"
	PanelReceiver  InfoPanel = "receiver"
)

// InfoPanels returns the panels shown while method is selected.
func InfoPanels(method Method) []InfoPanel {
	var panels []InfoPanel
	switch method.ID {
	case MethodCard:
		panels = append(panels, PanelCard)
	case MethodSEPADebit:
		panels = append(panels, PanelSEPADebit)
	case MethodWeChat:
		panels = append(panels, PanelWeChat)
	}
	switch method.Flow {
	case FlowRedirect:
		panels = append(panels, PanelRedirect)
	case FlowReceiver:
		panels = append(panels, PanelReceiver)
	}
	return panels
}
