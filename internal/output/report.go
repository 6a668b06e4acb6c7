package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/k0pernicus/zou/internal/utils"
)

// PrintMirrorScores lists every mirror in ranked order, unreachable ones last.
func PrintMirrorScores(ranked []string, scores []utils.MirrorScore) {
	byMirror := make(map[string]utils.MirrorScore, len(scores))
	for _, score := range scores {
		byMirror[score.Mirror] = score
	}
	PrintHeader("Mirrors")
	for i, mirror := range ranked {
		latency := time.Duration(byMirror[mirror].Latency).Round(time.Microsecond)
		fmt.Fprintf(Console, "%s%s %s %s\n", strings.Repeat(" ", 2),
			successStyle.Render(fmt.Sprintf("%d.", i+1)), mirror, FDebug(latency.String()))
	}
	for _, score := range scores {
		if !score.Reachable {
			fmt.Fprintf(Console, "%s%s %s %s\n", strings.Repeat(" ", 2),
				errorStyle.Render(StyleSymbols["fail"]), score.Mirror, FDebug("unreachable"))
		}
	}
}

func PrintRemoteInfo(info utils.RemoteServerInfo) {
	PrintHeader("Remote content")
	rows := [][2]string{
		{"URL", info.URL},
		{"Size", fmt.Sprintf("%s (%d bytes)", utils.FormatBytes(info.ContentLength), info.ContentLength)},
		{"Partial content", fmt.Sprint(info.AcceptsPartialContent)},
		{"Authenticated", fmt.Sprint(info.AuthHeader != "")},
	}
	for _, row := range rows {
		fmt.Fprintf(Console, "%s%s %s\n", strings.Repeat(" ", 2), FDetail(row[0]+":"), row[1])
	}
}
