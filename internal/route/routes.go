package route

import (
	"net/http"
	"os"
	"path/filepath"

	"plantdoc/internal/config"
	"plantdoc/internal/handler"
	"plantdoc/internal/logger"
	"plantdoc/internal/middleware"
	"plantdoc/internal/repository"
	"plantdoc/internal/service"
	"plantdoc/internal/service/storage"
	"plantdoc/internal/service/websocket"
)

// staticDir holds the web frontend.
const staticDir = "static"

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// Dependencies bundles what the routes need.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Manager       *service.Manager
	Store         *storage.ResultStore
	Hub           *websocket.HubService
	DiagnosisRepo repository.DiagnosisRepository
	DetectionRepo repository.DetectionRepository
}

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with the CORS and authentication middleware.
func SetupRoutes(deps Dependencies) http.Handler {
	cfg, log := deps.Config, deps.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// Diagnosis endpoints
	mux.HandleFunc("/api/diagnose", handler.DiagnoseHandler(deps.Manager, cfg, log))
	mux.HandleFunc("/api/examples", handler.ExamplesHandler(deps.Manager, log))
	mux.HandleFunc("/api/examples/diagnose", handler.DiagnoseExampleHandler(deps.Manager, log))
	mux.HandleFunc("/api/classes", handler.ClassesHandler(cfg, log))
	mux.HandleFunc("/api/live", handler.LiveWebsocketHandler(deps.Hub, log))

	// History endpoints
	mux.HandleFunc("/api/history", handler.GetHistoryHandler(log, deps.DiagnosisRepo, deps.DetectionRepo))
	mux.HandleFunc("/api/history/view", handler.ViewResultHandler(deps.Store))
	mux.HandleFunc("/api/history/delete", handler.DeleteResultHandler(deps.Store, log))
	mux.HandleFunc("/api/history/clear", handler.ClearHistoryHandler(deps.Store, log))

	// Log endpoints
	for path, file := range map[string]string{
		"/logs/info":    logger.InfoFile,
		"/logs/warning": logger.WarningFile,
		"/logs/error":   logger.ErrorFile,
	} {
		mux.HandleFunc(path, handler.ShowLogsHandler(log, file))
		mux.HandleFunc(path+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	mux.HandleFunc("/health", handler.HealthHandler(log))

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.CORSMiddleware(middleware.AuthMiddleware(cfg.Password)(mux))
}
