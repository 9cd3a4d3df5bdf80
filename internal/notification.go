package internal

import (
	"fmt"
	"io"
	"log" //nolint:depguard // plain console lines, not structured logs
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/micutio/trackspottr/internal/track"
)

const (
	// appIconPath is the file path to the icon png for this application.
	appIconPath = "./assets/icon.png"
)

// Notify prints console lines and raises desktop notifications.
type Notify struct {
	Stdout  log.Logger
	desktop bool
	home    track.Position
	logger  *slog.Logger
}

// NewNotify creates a notifier. Desktop notifications are only raised when desktop is set.
func NewNotify(appName string, consoleOut io.Writer, desktop bool, home track.Position, logger *slog.Logger) *Notify {
	beeep.AppName = appName //nolint:reassign // This is the only way to set app name in beeep.
	if logger == nil {
		logger = slog.Default()
	}
	return &Notify{
		Stdout:  *log.New(consoleOut, "", 0),
		desktop: desktop,
		home:    home,
		logger:  logger,
	}
}

// SyncStateChanged reports losing and regaining the server.
func (notify *Notify) SyncStateChanged(from, to SyncState) {
	switch {
	case to == Degraded:
		notify.Stdout.Printf("server connection lost, showing last known picture\n")
		notify.desktopNotify("Tracking server offline", "Showing the last known picture until the server is back.")
	case to == Synced && from == Degraded:
		notify.Stdout.Printf("server connection restored\n")
		notify.desktopNotify("Tracking server back online", "Live tracks are updating again.")
	case to == Synced && from == Uninitialized:
		notify.Stdout.Printf("connected to server\n")
	}
}

// PrintSummary prints the highest, fastest and the most and the least common sightings.
func (notify *Notify) PrintSummary(db *Dashboard) {
	notify.Stdout.Println("=== Summary ===")
	notify.Stdout.Printf("%d tracks seen this session\n", db.SeenCount())
	notify.listByRarity("category", db.SeenCategoryCount)
	notify.listByRarity("type", db.SeenDescCount)
	notify.listByRarity("operator", db.SeenOperatorCount)
	notify.Stdout.Println("Fastest:")
	notify.Stdout.Println(TrackToString(db.Fastest, notify.home))
	notify.Stdout.Println("Highest:")
	notify.Stdout.Println(TrackToString(db.Highest, notify.home))
	notify.Stdout.Println("=== End Summary ===")
}

func (notify *Notify) listByRarity(propertyName string, propertyCountMap map[string]int) {
	propertyCounts := GetSortedCountsForProperty(propertyCountMap)

	notify.Stdout.Printf("Rarity from least to most common %s\n", propertyName)
	for j := range propertyCounts {
		notify.Stdout.Printf("%6d - %s\n", propertyCounts[j].Count, propertyCounts[j].Property)
	}
}

// EmitRarityNotifications prints and announces every rare sighting.
func (notify *Notify) EmitRarityNotifications(rareSightings []RareSighting) {
	for i := range rareSightings {
		sighting := &rareSightings[i]
		if sighting.Rarities == NoRarity {
			continue
		}

		line := TrackToString(&sighting.Track, notify.home)
		notify.Stdout.Printf("found %s: %s\n", sighting.Rarities, line)

		title, body := rarityMessage(sighting)
		notify.desktopNotify(title, body)
	}
}

func rarityMessage(sighting *RareSighting) (string, string) {
	t := &sighting.Track
	desc := t.TypeDesc
	if desc == "" {
		desc = t.Type.String()
	}

	switch sighting.Rarities {
	case RareDescription:
		return "Rare Type Spotted", fmt.Sprintf("%s (%s)", desc, t.DisplayName())
	case RareOperator:
		return "Rare Operator Spotted", fmt.Sprintf("%s flying %s", OperatorCode(t.Name), desc)
	case RareCategory:
		return "Rare Track Spotted", fmt.Sprintf("%s %s", t.Type, t.DisplayName())
	case RareDescriptionAndOperator:
		return "Rare Type & Operator Spotted", fmt.Sprintf("%s (%s) operated by\n%s", desc, t.DisplayName(), OperatorCode(t.Name))
	case RareDescriptionAndCategory, RareOperatorAndCategory:
		return "Rare Sighting", fmt.Sprintf("%s %s (%s)", t.Type, desc, t.DisplayName())
	case RareDescriptionOperatorCategory:
		return "TRIFECTA spotted!", fmt.Sprintf("%s (%s),\nrun by %s", desc, t.DisplayName(), OperatorCode(t.Name))
	}
	return "Sighting", t.DisplayName()
}

func (notify *Notify) desktopNotify(title, body string) {
	if !notify.desktop {
		return
	}
	if err := beeep.Notify(title, body, appIconPath); err != nil {
		notify.logger.Warn("desktop notification failed", slog.Any("error", err))
	}
}
