package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/backend"
	"github.com/blaubaer/audio-session/pkg/common"
	"github.com/blaubaer/audio-session/pkg/session"
)

func NewApp() *App {
	return &App{
		config: NewConfiguration(),
	}
}

// App owns the backend, the catalog and the one session of the process.
type App struct {
	Backend           backend.Facade
	ConfigurationFile string
	Interactive       bool

	catalog  *audio.Catalog
	session  *session.Session
	registry *prometheus.Registry
	server   *http.Server

	configFromFlags Configuration
	config          Configuration
	mutex           sync.Mutex
}

func (this *App) SetupConfiguration(using common.FlagHolder) {
	this.configFromFlags.SetupConfiguration(using)

	using.Flag("configuration", "Defines the file from which the configuration should be loaded and/or stored to.").
		Short('c').
		PlaceHolder("<file>").
		Envar("AS_CONFIGURATION").
		StringVar(&this.ConfigurationFile)
	using.Flag("interactive", "If provided devices and lets which are not configured are requested on the terminal.").
		Short('i').
		Envar("AS_INTERACTIVE").
		BoolVar(&this.Interactive)
}

func (this *App) Initialize() (rErr error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	if this.session != nil {
		return nil
	}

	success := false
	defer func() {
		if !success {
			if err := this.dispose(); err != nil {
				rErr = errors.Join(rErr, err)
			}
		}
	}()

	this.config = NewConfiguration()
	if err := this.config.loadFromFile(this.configurationFile(), true); err != nil {
		return err
	}
	if err := this.config.mergeFrom(this.configFromFlags); err != nil {
		return err
	}

	if err := this.Backend.Configure(&this.config.Backend); err != nil {
		return err
	}
	this.catalog = audio.NewCatalog(&this.Backend)
	if err := this.catalog.Initialize(); err != nil {
		return err
	}

	this.registry = prometheus.NewRegistry()
	this.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	this.session = session.NewSession(&this.Backend, session.NewMetrics(this.registry))

	if err := this.serveMetrics(); err != nil {
		return err
	}

	if err := this.saveConf(); err != nil {
		return err
	}

	log.With("backend", this.Backend.GetType()).
		Debug("Application initialized.")

	success = true
	return nil
}

func (this *App) configurationFile() string {
	if v := this.ConfigurationFile; v != "" {
		return v
	}
	return defaultConfigurationFile()
}

// saveConf writes the configuration if the file does not exist yet.
func (this *App) saveConf() error {
	if this.config.PreventAutoSave {
		log.Debug("Automatically save of configuration disabled.")
		return nil
	}

	fn := this.configurationFile()
	if _, err := os.Stat(fn); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	log.With("file", fn).Info("Configuration absent.")

	if err := this.config.saveToFile(fn); err != nil {
		return err
	}

	log.With("file", fn).Info("Configuration saved.")

	return nil
}

func (this *App) serveMetrics() error {
	addr := this.config.MetricsListen
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(this.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	this.server = server

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).
				With("address", ln.Addr()).
				Error("Metrics endpoint failed.")
		}
	}()

	log.With("address", ln.Addr()).
		Info("Serving metrics.")

	return nil
}

func (this *App) Dispose() error {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	return this.dispose()
}

func (this *App) dispose() (rErr error) {
	if v := this.session; v != nil {
		this.session = nil
		if err := v.Dispose(); err != nil {
			rErr = errors.Join(rErr, err)
		}
	}
	if v := this.server; v != nil {
		this.server = nil
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := v.Shutdown(ctx); err != nil {
			rErr = errors.Join(rErr, fmt.Errorf("cannot stop metrics endpoint: %w", err))
		}
	}
	if v := this.catalog; v != nil {
		this.catalog = nil
		if err := v.Dispose(); err != nil {
			rErr = errors.Join(rErr, err)
		}
	}
	if err := this.Backend.Dispose(); err != nil {
		rErr = errors.Join(rErr, err)
	}
	return
}

// Session returns the session of the application; nil if not initialized.
func (this *App) Session() *session.Session {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.session
}

func (this *App) Configuration() Configuration {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	return this.config
}

func (this *App) state() (*audio.Catalog, *session.Session, error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()
	if this.session == nil {
		return nil, nil, fmt.Errorf("application not initialized")
	}
	return this.catalog, this.session, nil
}
