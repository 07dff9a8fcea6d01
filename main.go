package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/camden-git/mememanager/bulk"
	"github.com/camden-git/mememanager/config"
	"github.com/camden-git/mememanager/database"
	"github.com/camden-git/mememanager/handlers"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: mememanager <command> [Options...] [Arguments...]\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  initdb [file]                             create a new database file\n")
	fmt.Fprintf(os.Stderr, "  run [--port N] [--host H] [file]          serve the HTTP API\n")
	fmt.Fprintf(os.Stderr, "  import [--group NAME] <src> <dbfile>      import an image file or directory\n")
	fmt.Fprintf(os.Stderr, "  export [--group NAME] <dbfile> <destdir>  export images to a directory\n")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "initdb":
		return initDB(cfg, rest)
	case "run":
		return serve(cfg, rest)
	case "import":
		return importImages(cfg, rest)
	case "export":
		return exportImages(cfg, rest)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// dbFileArg resolves the optional database file argument against the configured default
func dbFileArg(cfg config.Config, fs *flag.FlagSet) (string, error) {
	if fs.NArg() > 1 {
		return "", fmt.Errorf("%s: too many arguments", fs.Name())
	}
	path := cfg.DatabasePath
	if fs.NArg() == 1 {
		path = fs.Arg(0)
	}
	return filepath.Abs(path)
}

// openExisting opens a database file that must already exist
func openExisting(cfg config.Config, path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, err
	}
	db, err := database.InitGormDB(path, cfg.DBLogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

func initDB(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("initdb", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := dbFileArg(cfg, fs)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	db, err := database.InitGormDB(path, cfg.DBLogLevel)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.AutoMigrateModels(db); err != nil {
		return err
	}
	fmt.Printf("Initialized %s\n", path)
	return nil
}

func serve(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "network port to listen to")
	host := fs.String("host", cfg.Host, "network interface to bind")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := dbFileArg(cfg, fs)
	if err != nil {
		return err
	}

	db, err := openExisting(cfg, path)
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Printf("Using database: %s", path)
	if cfg.FrontendDirectory != "" {
		log.Printf("Serving frontend from: %s", cfg.FrontendDirectory)
	}

	serverAddr := net.JoinHostPort(*host, strconv.Itoa(*port))
	fmt.Printf("Server starting on http://%s\n", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handlers.NewRouter(cfg, db),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return server.ListenAndServe()
}

func importImages(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	group := fs.String("group", "", "put every imported image into this group")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("import: expected <src> <dbfile>")
	}
	src := fs.Arg(0)
	path, err := filepath.Abs(fs.Arg(1))
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%s does not exist", src)
	}

	db, err := openExisting(cfg, path)
	if err != nil {
		return err
	}
	defer database.Close(db)

	report, err := bulk.NewImporter(db).ImportPath(src, *group)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d images into %d groups", report.ImageCount, report.GroupCount)
	if report.Failed > 0 {
		fmt.Printf(", %d failed", report.Failed)
	}
	fmt.Println()
	return nil
}

func exportImages(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	group := fs.String("group", "", "export only this group")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("export: expected <dbfile> <destdir>")
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}
	dest := fs.Arg(1)

	db, err := openExisting(cfg, path)
	if err != nil {
		return err
	}
	defer database.Close(db)

	ex := bulk.NewExporter(db)
	var report bulk.ExportReport
	if *group != "" {
		report, err = ex.ExportGroup(dest, *group)
	} else {
		report, err = ex.ExportAll(dest)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d images to %s", report.OK, dest)
	if report.Failed > 0 {
		fmt.Printf(", %d failed", report.Failed)
	}
	fmt.Println()
	return nil
}
