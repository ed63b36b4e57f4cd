package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/catalog-metrics/internal/app"
	"github.com/yungbote/catalog-metrics/internal/data/db"
	"github.com/yungbote/catalog-metrics/internal/jobs/pipeline/metrics_refresh"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type idList []int64

func (l *idList) String() string {
	parts := make([]string, 0, len(*l))
	for _, id := range *l {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid product id %q", v)
	}
	*l = append(*l, id)
	return nil
}

func main() {
	var (
		teardown    bool
		backfill    bool
		refreshOnce bool
		products    idList
	)
	flag.BoolVar(&teardown, "teardown", false, "drop the lookup table and exit")
	flag.BoolVar(&backfill, "backfill", false, "insert lookup rows for products that lack one")
	flag.BoolVar(&refreshOnce, "refresh-once", false, "run one metrics refresh batch")
	flag.Var(&products, "product", "product id to recompute immediately (repeatable)")
	flag.Parse()

	cfg := app.LoadConfig()
	cfg.AutoProvision = false

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, log, cfg)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close(ctx)

	if teardown {
		if err := db.Teardown(application.DB); err != nil {
			fmt.Printf("teardown: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("lookup table dropped")
		return
	}

	if err := db.Provision(application.DB); err != nil {
		fmt.Printf("provision: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("tables and indexes provisioned")

	if backfill {
		out, err := application.Usecases.BackfillLookup(ctx)
		if err != nil {
			fmt.Printf("backfill: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("lookup rows inserted: %d\n", out.Inserted)
	}

	for _, id := range products {
		res, err := application.Usecases.RefreshProduct(ctx, id)
		if err != nil {
			fmt.Printf("refresh product %d: %v\n", id, err)
			os.Exit(1)
		}
		if res == nil {
			fmt.Printf("product %d not found, skipped\n", id)
			continue
		}
		printJSON(res)
	}

	if refreshOnce {
		jc, err := application.Runner.Run(ctx, metrics_refresh.JobType)
		if err != nil {
			fmt.Printf("refresh: %v\n", err)
			os.Exit(1)
		}
		printJSON(jc.Run)
	}
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(raw))
}
