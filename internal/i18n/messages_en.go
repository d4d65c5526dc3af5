package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Inline validation warnings
	"validate.login_required": "Please log in to continue",
	"validate.link_empty":     "Please enter a YouTube URL",
	"validate.link_invalid":   "Please enter a valid YouTube URL",
	"validate.email":          "Please enter a valid email address",
	"validate.password_short": "Password must be at least 8 characters long",
	"validate.password_empty": "Please enter your password",

	// Comparison errors
	"error.generic":             "Failed to process song.",
	"error.backend_status":      "Server error: %d",
	"error.backend_unreachable": "Cannot reach the comparison backend at %s",
	"error.submission_pending":  "A comparison is already running. Please wait for it to finish.",
	"error.rate_limited":        "You are submitting songs too quickly. Please wait a minute and try again.",
	"error.user_changed":        "The signed-in account changed during the comparison. Please submit the link again.",
	"error.auth_unavailable":    "Sign-in is not configured on this server.",

	// Link classification feedback
	"link.prompt":  "Paste a link above to check if it is supported.",
	"link.youtube": "This is a YouTube / YouTube Music link.",
	"link.spotify": "This is a Spotify link. Matching currently supports YouTube links only.",
	"link.unknown": "Unknown link. Please use a link from Spotify, YouTube, or YouTube Music.",

	// Compare form and result
	"compare.heading":     "Find Similar Songs",
	"compare.placeholder": "Paste YouTube URL here...",
	"compare.submit":      "Find Similar Song",
	"compare.processing":  "Processing…",
	"compare.similarity":  "Similarity",
	"compare.open_match":  "Open on YouTube",
	"compare.bpm":         "BPM: %d",
	"compare.key":         "Key: %s",
	"compare.from":        "Your song: %s",

	// Page chrome
	"page.tagline":         "Intelligent music discovery",
	"page.history_tagline": "Your search history",
	"page.profile_tagline": "Your account overview",
	"page.landing_title":   "Find the songs that sound like yours",
	"page.landing_body":    "Paste a YouTube link and Melodora finds the closest match in its catalogue.",
	"page.theme_toggle":    "Toggle theme",

	// Navigation
	"nav.profile":        "Profile",
	"nav.history":        "History",
	"nav.logout":         "Logout",
	"nav.back_to_search": "Back to search",
	"nav.sign_in":        "Sign In",
	"nav.sign_up":        "Sign up",

	// History
	"history.heading":        "History",
	"history.subheading":     "All your recent song comparisons",
	"history.count":          "%d comparisons",
	"history.empty":          "No search history yet",
	"history.empty_hint":     "Start comparing songs from the homepage to see them listed here.",
	"history.uploaded_title": "Uploaded title",
	"history.matched_title":  "Matched title",
	"history.open":           "Go to YouTube",
	"history.recent":         "Recent comparisons",

	// Profile
	"profile.heading":            "Profile",
	"profile.total_searches":     "Total searches",
	"profile.average_similarity": "Average similarity",
	"profile.recent_activity":    "Recent activity",
	"profile.no_activity": "You haven't compared any songs yet. " +
		"Start from the search page to build your history.",
	"profile.activity":  "You've run %d searches so far. Your average match similarity is %s.",
	"profile.go_search": "Go to search",
	"profile.full_list": "View full history",

	// Authentication
	"auth.welcome":          "Welcome back",
	"auth.sign_in_hint":     "Sign in to your account to continue",
	"auth.create_heading":   "Create your account",
	"auth.create_hint":      "Get started with Melodora today",
	"auth.email":            "Email address",
	"auth.password":         "Password",
	"auth.password_hint":    "Must be at least 8 characters long",
	"auth.sign_in":          "Sign in",
	"auth.create_account":   "Create account",
	"auth.no_account":       "Don't have an account?",
	"auth.have_account":     "Already have an account?",
	"auth.check_email":      "Check your email to confirm your account, then sign in.",
	"auth.signed_out":       "You have been signed out.",
	"auth.brand_tagline":    "Discover similar music faster",
	"auth.invalid_password": "Invalid email or password",
}
