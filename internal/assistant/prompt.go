package assistant

import (
	"fmt"
	"strings"
)

// statementLimit caps exercise statements embedded in the prompt so a stack
// of long exercises does not crowd out the question.
const statementLimit = 1500

// truncateStatement caps a statement at statementLimit characters. Counting
// runes rather than bytes keeps accented French text from being cut
// mid-sequence.
func truncateStatement(s string) string {
	r := []rune(s)
	if len(r) <= statementLimit {
		return s
	}
	return string(r[:statementLimit]) + "..."
}

func formatTime(seconds float64) string {
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// formatTranscript renders segments as "[MM:SS] text" lines, optionally
// restricted to segments starting within [start, end].
func formatTranscript(segments []TranscriptSegment, start, end *float64) string {
	var sb strings.Builder
	for _, seg := range segments {
		if start != nil && seg.Start < *start {
			continue
		}
		if end != nil && seg.Start > *end {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] %s", formatTime(seg.Start), seg.Text)
	}
	return sb.String()
}

func buildVideoPrompt(req VideoRequest) string {
	var context []string
	if req.CourseTitle != "" {
		context = append(context, "📚 Cours: "+req.CourseTitle)
	}
	if req.CourseLevel != "" {
		context = append(context, "🎓 Niveau: "+req.CourseLevel)
	}
	if req.VideoTitle != "" {
		context = append(context, "🎬 Vidéo: "+req.VideoTitle)
	}
	if req.CurrentTime != nil {
		context = append(context, "⏱️ Position: "+formatTime(*req.CurrentTime))
	}

	subject := req.Subject
	if subject == "" {
		subject = "Mathématiques"
	}

	var transcriptSection string
	if len(req.Transcript) > 0 {
		transcriptSection = "\nTRANSCRIPTION COMPLÈTE:\n" + formatTranscript(req.Transcript, nil, nil) + "\n"
	}

	return fmt.Sprintf(`Tu es un assistant pédagogique qui aide l'élève à comprendre son cours.

CONTEXTE:
%s
Matière: %s
%s
CAPACITÉS:
- Tu as accès à TOUTE la transcription avec timestamps
- Si l'élève demande une plage (ex: "de 4:00 à 5:00"), CITE ce passage
- Format citation: "À [MM:SS], le prof dit: '[texte]'"

MATHS EN LATEX:
- Inline: $x^2$, $\frac{a}{b}$, $\sqrt{x}$
- Ensembles: $\mathbb{R}$, $\mathbb{N}$, $\mathbb{Z}$

STRUCTURE DE RÉPONSE:
📺 [Citation avec timing si pertinent]
💡 [Explication simple]
📝 [Exemple concret]
✅ [Question de vérification]

STYLE:
- Ton bienveillant et encourageant
- Phrases courtes et précises
- Emojis pour structurer (📺 💡 📝 ✅)
- Maximum 5-8 phrases (sauf explication complexe)

QUESTION: %s`, strings.Join(context, "\n"), subject, transcriptSection, req.Question)
}

func buildActiveExercisesContext(exercises []Exercise) string {
	if len(exercises) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n📚 EXERCICES SELECTIONNES PAR L'ELEVE (%d):\n\n", len(exercises))
	for _, ex := range exercises {
		order := "?"
		if ex.Order > 0 {
			order = fmt.Sprintf("%d", ex.Order)
		}
		title := ex.Title
		if title == "" {
			title = "Sans titre"
		}
		fmt.Fprintf(&sb, "═══ EXERCICE %s ═══\n", order)
		fmt.Fprintf(&sb, "Titre: %s\n", title)
		if ex.Difficulty != "" {
			fmt.Fprintf(&sb, "Difficulté: %s\n", ex.Difficulty)
		}
		if ex.IsMultiCourse && len(ex.Courses) > 0 {
			fmt.Fprintf(&sb, "🔗 EXERCICE MULTI-THEMATIQUES (%d cours): %s\n", len(ex.Courses), strings.Join(ex.Courses, ", "))
		} else if len(ex.Courses) > 0 {
			fmt.Fprintf(&sb, "Cours: %s\n", strings.Join(ex.Courses, ", "))
		}
		if ex.Tags != "" {
			fmt.Fprintf(&sb, "Mots-clés: %s\n", ex.Tags)
		}
		if ex.Statement != "" {
			fmt.Fprintf(&sb, "\nÉnoncé:\n%s\n", truncateStatement(ex.Statement))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("L'élève a sélectionné ces exercices pour que tu puisses t'y référer.\n")
	return sb.String()
}

func buildMainExerciseContext(ex *Exercise) string {
	if ex == nil || ex.Title == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n📝 EXERCICE PRINCIPAL (celui d'où l'élève a ouvert l'assistant):\n")
	fmt.Fprintf(&sb, "Titre: %s\n", ex.Title)
	if ex.Difficulty != "" {
		fmt.Fprintf(&sb, "Difficulté: %s\n", ex.Difficulty)
	}
	if ex.Tags != "" {
		fmt.Fprintf(&sb, "Mots-clés: %s\n", ex.Tags)
	}
	if ex.Statement != "" {
		fmt.Fprintf(&sb, "\nÉnoncé complet:\n%s\n", ex.Statement)
	}
	// The solution itself never reaches the prompt, only its existence.
	if ex.Solution != "" {
		sb.WriteString("\n✅ Une solution corrigée existe pour cet exercice.\n")
	}
	return sb.String()
}

func buildExoPrompt(req ExoRequest) string {
	level := req.UserLevel
	if level == "" {
		level = "Non specifie"
	}
	subject := req.UserSubject
	if subject == "" {
		subject = "Non specifie"
	}

	var history string
	if req.ConversationHistory != "" {
		history = "\n💬 HISTORIQUE DE LA CONVERSATION:\n" + req.ConversationHistory + "\n"
	}

	return fmt.Sprintf(`Tu es un assistant pedagogique specialise dans l'aide aux exercices de mathematiques pour le secondaire (programme francais).

CONTEXTE DE L'ELEVE:
Niveau: %s
Matiere: %s
%s%s%s

🎯 TON ROLE PRINCIPAL:
Aider l'eleve a COMPRENDRE et RESOUDRE par lui-meme, en t'appuyant sur les exercices qu'il a selectionnes quand c'est pertinent.

✅ CE QUE TU DOIS FAIRE:
- Référer aux exercices par leur NUMERO (Exercice 1, Exercice 2, etc.) ou leur TITRE
- JAMAIS mentionner les IDs techniques
- T'appuyer sur les énoncés fournis pour donner des réponses concrètes
- Faire des liens entre les exercices sélectionnés si pertinent
- Si un exercice est marqué "MULTI-THEMATIQUES", mentionner qu'il combine plusieurs chapitres

❌ CE QUE TU NE DOIS JAMAIS FAIRE:
- Mentionner les IDs techniques
- Inventer des informations qui ne sont pas dans les énoncés
- Révéler les solutions complètes

REGLES D'OR:
✅ TOUJOURS guider sans donner la reponse finale
✅ TOUJOURS encourager et feliciter les bonnes demarches
✅ Si l'eleve est bloque sur un exercice multi-thematiques, decomposer par notion

STYLE DE REPONSE:
- Ton bienveillant et encourageant
- Phrases courtes et precises
- Emojis pour structurer (📝 💡 🎯 ✅ ⚠️)
- Maximum 5-6 phrases (sauf explication complexe)

QUESTION DE L'ELEVE: %s`,
		level, subject,
		buildActiveExercisesContext(req.ActiveExercises),
		buildMainExerciseContext(req.MainExercise),
		history,
		req.Question)
}

func buildImagePrompt(question, grade, subject, courseTitle string) string {
	if grade == "" {
		grade = "Non spécifié"
	}
	if subject == "" {
		subject = "Non spécifié"
	}
	if courseTitle == "" {
		courseTitle = "Non spécifié"
	}

	return fmt.Sprintf(`Tu es un assistant pédagogique qui analyse des images/captures d'écran.

CONTEXTE:
Niveau: %s
Matière: %s
Cours: %s

STYLE:
- Ton bienveillant et encourageant
- Phrases courtes et précises
- Emojis pour structurer (💡 📝 ✅)
- Utilise $...$ pour les formules mathématiques

QUESTION: %s

Analyse l'image et réponds de façon pédagogique.`, grade, subject, courseTitle, question)
}
