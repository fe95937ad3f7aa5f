// Package tray knows which per-user values control notification-area icon
// visibility and how to interpret them.
package tray

import (
	"context"

	"github.com/yndnr/trayctl/internal/core/domain"
)

// Well-known paths, relative to HKCU.
const (
	ExplorerPath        = `Software\Microsoft\Windows\CurrentVersion\Explorer`
	PoliciesPath        = `Software\Microsoft\Windows\CurrentVersion\Policies\Explorer`
	NotifyIconSettings  = `Control Panel\NotifyIconSettings`
	TrayNotifyPath      = `Software\Classes\Local Settings\Software\Microsoft\Windows\CurrentVersion\TrayNotify`
	IsPromotedValueName = "IsPromoted"
)

// Windows11Build is the first Windows 11 build. Earlier builds keep per-icon
// visibility in the TrayNotify icon streams instead of NotifyIconSettings.
const Windows11Build = 22000

// AutoTray is the primary switch. 0 shows every icon, 1 auto-hides inactive
// icons, absent means the system default (auto-hide).
var AutoTray = domain.ConfigKey{Path: ExplorerPath, Name: "EnableAutoTray", Kind: domain.KindDWord}

// SystemIcons are the policy toggles that hide built-in icons; 0 shows them.
var SystemIcons = []domain.ConfigKey{
	{Path: PoliciesPath, Name: "HideClock", Kind: domain.KindDWord},
	{Path: PoliciesPath, Name: "HideSCAVolume", Kind: domain.KindDWord},
	{Path: PoliciesPath, Name: "HideSCANetwork", Kind: domain.KindDWord},
	{Path: PoliciesPath, Name: "HideSCAPower", Kind: domain.KindDWord},
}

// IconStreams are the legacy per-icon caches Explorer rebuilds when missing.
var IconStreams = []domain.ConfigKey{
	{Path: TrayNotifyPath, Name: "IconStreams", Kind: domain.KindBinary},
	{Path: TrayNotifyPath, Name: "PastIconsStream", Kind: domain.KindBinary},
}

// Lister is the subset of the store needed to enumerate icon entries.
type Lister interface {
	SubKeys(ctx context.Context, path string) ([]string, error)
}

// PromotionKeys returns the IsPromoted value of every registered icon.
// Order follows the store's enumeration and is not significant.
func PromotionKeys(ctx context.Context, l Lister) ([]domain.ConfigKey, error) {
	ids, err := l.SubKeys(ctx, NotifyIconSettings)
	if err != nil {
		return nil, err
	}
	keys := make([]domain.ConfigKey, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, domain.ConfigKey{
			Path: NotifyIconSettings + `\` + id,
			Name: IsPromotedValueName,
			Kind: domain.KindDWord,
		})
	}
	return keys, nil
}

// KeySet returns the keys captured for tier.
func KeySet(ctx context.Context, tier domain.Tier, l Lister) ([]domain.ConfigKey, error) {
	keys := []domain.ConfigKey{AutoTray}
	if tier == domain.TierBasic {
		return keys, nil
	}

	keys = append(keys, SystemIcons...)
	keys = append(keys, IconStreams...)

	promoted, err := PromotionKeys(ctx, l)
	if err != nil {
		return nil, err
	}
	return append(keys, promoted...), nil
}
