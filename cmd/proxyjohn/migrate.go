package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/proxyjohn/internal/config"
	migrations "github.com/dropDatabas3/proxyjohn/migrations/postgres"
)

func newMigrateCmd() *cobra.Command {
	var (
		configPath string
		dir        string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Aplica las migraciones SQL (*_up.sql / *_down.sql)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			}
			action := "up"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config load: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate solo aplica con storage.driver postgres")
			}

			// Por defecto corre sobre las migraciones embebidas en el
			// binario; --dir permite apuntar a un directorio suelto.
			var fsys fs.FS = migrations.FS
			if dir != "" {
				fsys = os.DirFS(dir)
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return fmt.Errorf("pgxpool: %w", err)
			}
			defer pool.Close()

			switch action {
			case "up":
				files, err := listSQL(fsys, "_up.sql")
				if err != nil {
					return err
				}
				sort.Strings(files)
				return execAll(ctx, pool, fsys, files)
			case "down":
				files, err := listSQL(fsys, "_down.sql")
				if err != nil {
					return err
				}
				sort.Strings(files)
				reverseInPlace(files)
				return execAll(ctx, pool, fsys, files)
			default:
				return fmt.Errorf("acción desconocida %q (up|down)", action)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/config.example.yaml", "ruta al config YAML")
	cmd.Flags().StringVar(&dir, "dir", "", "directorio de migraciones (default: embebidas)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "ruta a .env")
	return cmd
}

func listSQL(fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func reverseInPlace(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}

func execAll(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, files []string) error {
	if len(files) == 0 {
		log.Println("sin migraciones para aplicar")
		return nil
	}
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		start := time.Now()
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		log.Printf("OK %s (%s)", f, time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}
