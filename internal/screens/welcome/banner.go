package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cardquiz/internal/ui/theme"
)

const bannerArt = `
  ██████╗ █████╗ ██████╗ ██████╗  ██████╗ ██╗   ██╗██╗███████╗
 ██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔═══██╗██║   ██║██║╚══███╔╝
 ██║     ███████║██████╔╝██║  ██║██║   ██║██║   ██║██║  ███╔╝
 ██║     ██╔══██║██╔══██╗██║  ██║██║▄▄ ██║██║   ██║██║ ███╔╝
 ╚██████╗██║  ██║██║  ██║██████╔╝╚██████╔╝╚██████╔╝██║███████╗
  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝  ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝`

const bannerCompact = "C A R D Q U I Z"

// RenderBanner returns the CARDQUIZ banner styled in the primary color.
// Uses a compact fallback for terminals narrower than 64 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 64 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
