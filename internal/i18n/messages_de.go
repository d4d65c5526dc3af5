package i18n

// germanMessages contains all German translations.
var germanMessages = map[string]string{
	// Inline validation warnings
	"validate.login_required": "Bitte melde dich an, um fortzufahren",
	"validate.link_empty":     "Bitte gib eine YouTube-URL ein",
	"validate.link_invalid":   "Bitte gib eine gültige YouTube-URL ein",
	"validate.email":          "Bitte gib eine gültige E-Mail-Adresse ein",
	"validate.password_short": "Das Passwort muss mindestens 8 Zeichen lang sein",
	"validate.password_empty": "Bitte gib dein Passwort ein",

	// Comparison errors
	"error.generic":             "Der Song konnte nicht verarbeitet werden.",
	"error.backend_status":      "Serverfehler: %d",
	"error.backend_unreachable": "Das Vergleichs-Backend unter %s ist nicht erreichbar",
	"error.submission_pending":  "Ein Vergleich läuft bereits. Bitte warte, bis er fertig ist.",
	"error.rate_limited":        "Du sendest Songs zu schnell. Bitte warte eine Minute und versuche es erneut.",
	"error.user_changed":        "Das Konto wurde während des Vergleichs gewechselt. Bitte sende den Link erneut.",
	"error.auth_unavailable":    "Die Anmeldung ist auf diesem Server nicht eingerichtet.",

	// Link classification feedback
	"link.prompt":  "Füge oben einen Link ein, um zu prüfen, ob er unterstützt wird.",
	"link.youtube": "Das ist ein YouTube- / YouTube-Music-Link.",
	"link.spotify": "Das ist ein Spotify-Link. Der Abgleich unterstützt derzeit nur YouTube-Links.",
	"link.unknown": "Unbekannter Link. Bitte verwende einen Link von Spotify, YouTube oder YouTube Music.",

	// Compare form and result
	"compare.heading":     "Ähnliche Songs finden",
	"compare.placeholder": "YouTube-URL hier einfügen...",
	"compare.submit":      "Ähnlichen Song finden",
	"compare.processing":  "Wird verarbeitet…",
	"compare.similarity":  "Ähnlichkeit",
	"compare.open_match":  "Auf YouTube öffnen",
	"compare.bpm":         "BPM: %d",
	"compare.key":         "Tonart: %s",
	"compare.from":        "Dein Song: %s",

	// Page chrome
	"page.tagline":         "Intelligente Musiksuche",
	"page.history_tagline": "Dein Suchverlauf",
	"page.profile_tagline": "Deine Kontoübersicht",
	"page.landing_title":   "Finde Songs, die wie deine klingen",
	"page.landing_body":    "Füge einen YouTube-Link ein und Melodora findet den ähnlichsten Song im Katalog.",
	"page.theme_toggle":    "Farbschema wechseln",

	// Navigation
	"nav.profile":        "Profil",
	"nav.history":        "Verlauf",
	"nav.logout":         "Abmelden",
	"nav.back_to_search": "Zurück zur Suche",
	"nav.sign_in":        "Anmelden",
	"nav.sign_up":        "Registrieren",

	// History
	"history.heading":        "Verlauf",
	"history.subheading":     "Alle deine letzten Song-Vergleiche",
	"history.count":          "%d Vergleiche",
	"history.empty":          "Noch kein Suchverlauf",
	"history.empty_hint":     "Vergleiche Songs auf der Startseite, damit sie hier erscheinen.",
	"history.uploaded_title": "Hochgeladener Titel",
	"history.matched_title":  "Gefundener Titel",
	"history.open":           "Zu YouTube",
	"history.recent":         "Letzte Vergleiche",

	// Profile
	"profile.heading":            "Profil",
	"profile.total_searches":     "Suchen insgesamt",
	"profile.average_similarity": "Durchschnittliche Ähnlichkeit",
	"profile.recent_activity":    "Letzte Aktivität",
	"profile.no_activity": "Du hast noch keine Songs verglichen. " +
		"Starte auf der Suchseite, um deinen Verlauf aufzubauen.",
	"profile.activity":  "Du hast bisher %d Suchen gestartet. Deine durchschnittliche Ähnlichkeit liegt bei %s.",
	"profile.go_search": "Zur Suche",
	"profile.full_list": "Gesamten Verlauf ansehen",

	// Authentication
	"auth.welcome":          "Willkommen zurück",
	"auth.sign_in_hint":     "Melde dich an, um fortzufahren",
	"auth.create_heading":   "Konto erstellen",
	"auth.create_hint":      "Starte noch heute mit Melodora",
	"auth.email":            "E-Mail-Adresse",
	"auth.password":         "Passwort",
	"auth.password_hint":    "Mindestens 8 Zeichen",
	"auth.sign_in":          "Anmelden",
	"auth.create_account":   "Konto erstellen",
	"auth.no_account":       "Noch kein Konto?",
	"auth.have_account":     "Du hast schon ein Konto?",
	"auth.check_email":      "Bitte bestätige dein Konto über die E-Mail und melde dich dann an.",
	"auth.signed_out":       "Du wurdest abgemeldet.",
	"auth.brand_tagline":    "Ähnliche Musik schneller entdecken",
	"auth.invalid_password": "E-Mail oder Passwort ist falsch",
}
