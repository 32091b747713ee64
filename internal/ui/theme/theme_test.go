package theme

import (
	"testing"

	"github.com/dori/taskboard/internal/model"
)

func TestSet(t *testing.T) {
	defer SetTheme(Nord)

	if !Set(" Dracula ") {
		t.Fatal("Set should accept names case-insensitively")
	}
	if Current.Theme.Name != "dracula" {
		t.Errorf("Current = %s", Current.Theme.Name)
	}
	if Set("solarized") {
		t.Error("unknown theme accepted")
	}
	if Current.Theme.Name != "dracula" {
		t.Error("failed Set must keep the current theme")
	}
}

func TestStatusColor(t *testing.T) {
	for _, th := range Available() {
		if th.StatusColor(model.StatusTodo) == th.StatusColor(model.StatusDone) {
			t.Errorf("%s: todo and done share a color", th.Name)
		}
		if th.StatusColor(model.StatusInProgress) != th.StatusInProgress {
			t.Errorf("%s: wrong in-progress color", th.Name)
		}
	}
}
