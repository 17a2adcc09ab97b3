package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/nico19422009/mcauto/internal/backup"
	"github.com/nico19422009/mcauto/internal/config"
	"github.com/nico19422009/mcauto/internal/database"
	"github.com/nico19422009/mcauto/internal/fetch"
	"github.com/nico19422009/mcauto/internal/instance"
	"github.com/nico19422009/mcauto/internal/logging"
	"github.com/nico19422009/mcauto/internal/mojang"
	"github.com/nico19422009/mcauto/internal/provision"
	"github.com/nico19422009/mcauto/internal/session"
)

func usage() {
	fmt.Println("mcautoctl commands:")
	fmt.Println("  list")
	fmt.Println("  create --name NAME [--version VERSION] [--memory MEM] [--loader LOADER]")
	fmt.Println("  start --name NAME")
	fmt.Println("  stop --name NAME")
	fmt.Println("  restart --name NAME")
	fmt.Println("  status --name NAME")
	fmt.Println("  send --name NAME --command COMMAND")
	fmt.Println("  console --name NAME [--lines N]")
	fmt.Println("  attach --name NAME")
	fmt.Println("  backup --name NAME [--include-log] [--keep N]")
	fmt.Println("  backups --name NAME")
	fmt.Println("  versions [--type TYPE]")
	os.Exit(1)
}

type app struct {
	cfg         *config.Config
	supervisor  *session.Supervisor
	provisioner *provision.Provisioner
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration: %v", err)
	}
	logging.Init(logging.Options{Level: "warn", Format: "text"})

	screen := session.NewScreen(session.NewShellExecutor())
	supervisor := session.NewSupervisor(screen, cfg.Java.Path)

	mojangClient := mojang.NewClient()
	provisioner := provision.NewProvisioner(
		fetch.NewFetcher(),
		mojangClient,
		cfg.Storage.JarsDir,
		cfg.Storage.ServersDir,
	)
	provisioner.JavaPath = cfg.Java.Path
	provisioner.DefaultMemory = cfg.Java.DefaultMemory

	a := &app{cfg: cfg, supervisor: supervisor, provisioner: provisioner}

	switch os.Args[1] {
	case "list":
		a.listCmd()
	case "create":
		a.createCmd()
	case "start":
		a.startCmd()
	case "stop":
		a.stopCmd()
	case "restart":
		a.restartCmd()
	case "status":
		a.statusCmd()
	case "send":
		a.sendCmd()
	case "console":
		a.consoleCmd()
	case "attach":
		a.attachCmd()
	case "backup":
		a.backupCmd()
	case "backups":
		a.backupsCmd()
	case "versions":
		versionsCmd(mojangClient)
	default:
		usage()
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func nameFlag(fs *flag.FlagSet) *string {
	return fs.String("name", "", "instance name")
}

func (a *app) lookup(name string) *instance.Instance {
	if name == "" {
		fatal("--name is required")
	}
	inst, err := instance.Lookup(a.cfg.Storage.ServersDir, name)
	if err != nil {
		fatal("%v", err)
	}
	return inst
}

func (a *app) listCmd() {
	instances, err := instance.Detect(a.cfg.Storage.ServersDir)
	if err != nil {
		fatal("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tLOADER\tMEMORY\tSTATE")
	for _, inst := range instances {
		state, err := a.supervisor.Status(inst)
		if err != nil {
			state = session.StateStopped
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inst.Name(),
			inst.Descriptor.Version,
			inst.Descriptor.Loader,
			inst.Descriptor.Memory,
			state,
		)
	}
	w.Flush()
}

func (a *app) createCmd() {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := nameFlag(fs)
	version := fs.String("version", "latest", "game version, or latest")
	memory := fs.String("memory", "", "heap size (default from config)")
	loaderName := fs.String("loader", "vanilla", "server flavor: vanilla, fabric, forge, paper")
	fs.Parse(os.Args[2:])

	if *name == "" {
		fatal("--name is required")
	}
	loader, err := instance.ParseLoader(*loaderName)
	if err != nil {
		fatal("%v", err)
	}

	inst, err := a.provisioner.CreateInstance(context.Background(), provision.Request{
		Name:    *name,
		Version: *version,
		Memory:  *memory,
		Loader:  loader,
	})
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("created %s (version %s, %s heap) in %s\n",
		inst.Name(), inst.Descriptor.Version, inst.Descriptor.Memory, inst.Dir)
}

func (a *app) startCmd() {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	if err := a.supervisor.Start(inst); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s started\n", inst.Name())
}

func (a *app) stopCmd() {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	if err := a.supervisor.Stop(inst); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s stopped\n", inst.Name())
}

func (a *app) restartCmd() {
	fs := flag.NewFlagSet("restart", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	if err := a.supervisor.Restart(inst); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s restarted\n", inst.Name())
}

func (a *app) statusCmd() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	state, err := a.supervisor.Status(inst)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("%s: %s\n", inst.Name(), state)
}

func (a *app) sendCmd() {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	name := nameFlag(fs)
	command := fs.String("command", "", "console command to type")
	fs.Parse(os.Args[2:])

	if *command == "" {
		fatal("--command is required")
	}
	inst := a.lookup(*name)
	if err := a.supervisor.SendCommand(inst, *command); err != nil {
		fatal("%v", err)
	}
}

func (a *app) consoleCmd() {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	name := nameFlag(fs)
	lines := fs.Int("lines", 50, "number of trailing lines")
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	output, err := a.supervisor.TailOutput(inst, *lines)
	if err != nil {
		fatal("%v", err)
	}
	for _, line := range output {
		fmt.Println(line)
	}
}

func (a *app) attachCmd() {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	state, err := a.supervisor.Status(inst)
	if err != nil {
		fatal("%v", err)
	}
	if state != session.StateRunning {
		fmt.Printf("%s is not running, nothing to attach to\n", inst.Name())
		return
	}

	fmt.Println("attaching; detach with Ctrl-A d")
	if err := a.supervisor.Attach(inst); err != nil {
		fatal("%v", err)
	}
}

func (a *app) backupCmd() {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	name := nameFlag(fs)
	includeLog := fs.Bool("include-log", false, "include the console log in the archive")
	keep := fs.Int("keep", 0, "delete older backups beyond this count (0 keeps all)")
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	coordinator, _ := a.openBackups()

	record, err := coordinator.CreateBackup(inst, backup.Options{
		IncludeLog:     *includeLog,
		RetentionCount: *keep,
		CreatedBy:      "cli",
	})
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("backup %s created: %s (%d bytes, %d files)\n",
		record.ID, record.Filename, record.SizeBytes, record.FileCount)
}

func (a *app) backupsCmd() {
	fs := flag.NewFlagSet("backups", flag.ExitOnError)
	name := nameFlag(fs)
	fs.Parse(os.Args[2:])

	inst := a.lookup(*name)
	coordinator, _ := a.openBackups()

	records, err := coordinator.ListBackups(inst.Name())
	if err != nil {
		fatal("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tSIZE\tSTATUS\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Filename, r.SizeBytes, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func (a *app) openBackups() (*backup.Coordinator, *backup.Store) {
	db, err := database.NewDB(a.cfg.Database.Path)
	if err != nil {
		fatal("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		fatal("failed to migrate database: %v", err)
	}
	store := backup.NewStore(db)
	coordinator := backup.NewCoordinator(a.supervisor, store)
	coordinator.DefaultDir = a.cfg.Storage.BackupDir
	return coordinator, store
}

func versionsCmd(client *mojang.Client) {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	versionType := fs.String("type", "release", "version type filter, empty for all")
	fs.Parse(os.Args[2:])

	manifest, err := client.Manifest(context.Background())
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("latest release: %s\nlatest snapshot: %s\n\n",
		manifest.Latest.Release, manifest.Latest.Snapshot)
	for _, v := range manifest.Versions {
		if *versionType != "" && v.Type != *versionType {
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", v.ID, v.Type, v.ReleaseTime.Format("2006-01-02"))
	}
}
