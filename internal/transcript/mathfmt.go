package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// mathjaxTemperature keeps the formatting pass close to deterministic so the
// model rewrites notation, not content.
const mathjaxTemperature = 0.1

const llmServiceLabel = "transcript_mathjax"

var timestampLineRe = regexp.MustCompile(`^\[[\d.]+s\]\s*(.+)$`)

const mathjaxMacros = `Macros MathJax disponibles dans l'application :
- Ensembles : \R, \N, \Z, \Q, \C, \K
- Vecteurs : \vect{AB}, \norm{v}, \abs{x}
- Probabilités : \prob{A}, \esp{X}, \vari{X}
- Complexes : z, \bar{z} (conjugué), |z| (module), arg(z)
- Et toutes les commandes LaTeX standard`

type temperatureGenerator interface {
	GenerateTextWithTemperature(ctx context.Context, service, prompt string, temperature float32) (string, error)
}

// MathFormatter rewrites math transcripts into MathJax notation through the
// model. It is strictly best-effort: any deviation from the original line
// structure discards the model output and keeps the cleaned segments.
type MathFormatter struct {
	gen temperatureGenerator
}

func NewMathFormatter(gen temperatureGenerator) *MathFormatter {
	return &MathFormatter{gen: gen}
}

// Format returns MathJax-formatted copies of the segments, and whether the
// formatting was applied. Timestamps and segment count always match the
// input.
func (m *MathFormatter) Format(ctx context.Context, segments []Segment) ([]Segment, bool) {
	if m == nil || m.gen == nil || len(segments) == 0 {
		return segments, false
	}

	answer, err := m.gen.GenerateTextWithTemperature(ctx, llmServiceLabel, buildMathJaxPrompt(segments), mathjaxTemperature)
	if err != nil {
		slog.Warn("mathjax formatting failed", "error", err)
		return segments, false
	}

	lines := strings.Split(strings.TrimSpace(answer), "\n")
	if len(lines) != len(segments) {
		slog.Warn("mathjax formatting discarded",
			"expected_lines", len(segments), "got_lines", len(lines))
		return segments, false
	}

	formatted := make([]Segment, len(segments))
	for i, line := range lines {
		text := segments[i].Text
		if match := timestampLineRe.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			text = strings.TrimSpace(match[1])
		}
		formatted[i] = Segment{
			Start:    segments[i].Start,
			Duration: segments[i].Duration,
			Text:     text,
		}
	}
	return formatted, true
}

func buildMathJaxPrompt(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%gs] %s", seg.Start, seg.Text)
	}

	return fmt.Sprintf(`Tu es un expert en formatage de transcriptions mathématiques pour MathJax.

%s

MISSION :
Transforme cette transcription YouTube d'un cours de maths en texte formaté MathJax.

RÈGLES CRITIQUES (à respecter ABSOLUMENT) :
1. GARDE EXACTEMENT le même nombre de lignes que l'original
2. GARDE les timestamps [Xs] INTACTS sur chaque ligne
3. NE modifie QUE le texte après le timestamp
4. Utilise $...$ pour les maths inline : $z$, $iZ$, $\mathbb{R}$, $\pi/4$
5. Utilise $$...$$ pour les équations : $$|Z - 2i| = 3$$
6. Corrige la ponctuation et les tics ("et bien" → ".", "euh" → supprime)
7. Garde les termes techniques exacts ("module", "argument", "affixe")
8. NE change PAS le sens mathématique

Transcription à formater :
%s

IMPORTANT : Réponds UNIQUEMENT avec la transcription formatée, ligne par ligne, SANS aucun commentaire ou texte additionnel.`, mathjaxMacros, sb.String())
}
