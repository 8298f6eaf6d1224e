/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/tomoncle/datastudy"
	"github.com/tomoncle/datastudy/database"
	"github.com/tomoncle/datastudy/model"
	"github.com/tomoncle/datastudy/utils"
)

var log = utils.NewLogger("DATASTUDY")

func main() {
	configPath := flag.String("config", "", "path to a YAML database configuration")
	seed := flag.Int("seed", 100, "number of members to seed on first migration (0 disables)")
	page := flag.Int("page", 1, "page number, starting at 1")
	size := flag.Int("size", 5, "page size")
	bulkAge := flag.Int("bulk-age", 20, "add 10 to the age of members at least this old (-1 disables)")
	flag.Parse()

	// optional
	_ = godotenv.Load()

	if err := run(*configPath, *seed, *page, *size, *bulkAge); err != nil {
		log.WithError(err).Error("datastudy failed")
		os.Exit(1)
	}
}

func run(configPath string, seed, page, size, bulkAge int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return err
	}
	database.InitLogger(database.NewDefaultLogger(utils.NewLogger("DATABASE")))
	if seed > 0 {
		datastudy.RegisterMemberSeeder(seed)
		cfg.DataMigrateConfig.EnableSeed = true
	}

	if _, err := database.InitDB(ctx, cfg); err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	repos, err := datastudy.DefaultRepositories()
	if err != nil {
		return err
	}

	members, err := repos.ListMembers(ctx, page, size)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(members); err != nil {
		return err
	}
	log.WithField("total", members.Total).
		WithField("pages", members.TotalPages()).
		Info("listed members")

	health := database.GetHealthStatus(ctx)
	stats := database.GetDatabaseStats()
	log.WithField("healthy", health.Healthy).
		WithField("response_time", health.ResponseTime).
		WithField("open_conns", stats.OpenConns).
		WithField("in_use", stats.InUse).
		WithField("idle", stats.Idle).
		Info("database status")

	if bulkAge >= 0 {
		n, err := repos.Members.BulkAgePlus(ctx, bulkAge)
		if err != nil {
			return err
		}
		log.WithField("rows", n).WithField("min_age", bulkAge).Info("bulk age update")
	}

	item, err := repos.Items.Save(ctx, model.NewItem(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	log.WithField("id", item.ID).WithField("created", item.CreatedDate).Info("saved item")
	return nil
}
