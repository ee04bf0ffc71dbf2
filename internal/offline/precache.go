package offline

// LocalAssets are the same-origin paths precached on install.
var LocalAssets = []string{
	"/index.html",
	"/styles.css",
	"/script.js",
	"/config.js",
	"/logo.png",
	"/logo1.png",
	"/fondo.jpeg",
	"/fondo.webp",
	"/js/accessibility.js",
	"/manifest.json",
}

// ExternalAssets are the third-party stylesheets, fonts and scripts the front
// end loads from CDNs.
var ExternalAssets = []string{
	"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.0.0/css/all.min.css",
	"https://fonts.googleapis.com/css2?family=Merriweather:wght@400;700&display=swap",
	"https://fonts.googleapis.com/css2?family=Playfair+Display:wght@400;600;700&display=swap",
	"https://fonts.googleapis.com/css2?family=Inter:wght@400;600&display=swap",
	"https://cdn.jsdelivr.net/npm/flatpickr/dist/flatpickr.min.css",
	"https://cdn.jsdelivr.net/npm/chart.js",
	"https://cdn.jsdelivr.net/npm/chartjs-plugin-datalabels@2",
	"https://cdnjs.cloudflare.com/ajax/libs/hammer.js/2.0.8/hammer.min.js",
	"https://cdn.jsdelivr.net/npm/chartjs-plugin-zoom@2.0.1/dist/chartjs-plugin-zoom.min.js",
	"https://cdn.jsdelivr.net/npm/flatpickr",
}

// DefaultAllowedHosts are the third-party hosts whose responses may be cached.
var DefaultAllowedHosts = []string{
	"cdnjs.cloudflare.com",
	"cdn.jsdelivr.net",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
}
