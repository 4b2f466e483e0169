package widget

import (
	"fmt"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
)

// Instance is a widget as shown in an area listing.
type Instance struct {
	ID          int64  `json:"id"`
	Folder      string `json:"folder"`
	Title       string `json:"title"`
	Name        string `json:"name"`
	SettingsURL string `json:"settingsUrl"`
	Settings    Widget `json:"settings"`
}

// SettingsURL returns the settings page of a widget, or "" when it has none
func SettingsURL(folder string, id int64) string {
	if folder == "" || id <= 0 {
		return ""
	}
	return fmt.Sprintf("/widgets/%sSettings?widgetId=%d", folder, id)
}

// NewInstance builds the listing view of w. Name comes from the widget's
// manifest and is empty when the widget is not installed.
func NewInstance(w Widget, manifests []manifest.WidgetManifest) Instance {
	core := w.Core()
	inst := Instance{
		ID:          core.ID,
		Folder:      core.Folder,
		Title:       core.Title,
		SettingsURL: SettingsURL(core.Folder, core.ID),
		Settings:    w,
	}
	if m, ok := manifest.FindWidget(manifests, core.Folder); ok {
		inst.Name = m.Name
	}
	return inst
}
