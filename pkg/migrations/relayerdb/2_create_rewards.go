package relayerdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/giankylabs/relayer/pkg/pgutil/migrations"
	"github.com/giankylabs/relayer/pkg/rewardstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating rewards table...")
		if err := mghelper.CreateSchema(ctx, db, &rewardstore.RewardDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &rewardstore.RewardDao{}, "user_address", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping rewards table...")
		return mghelper.DropTables(ctx, db, &rewardstore.RewardDao{})
	})
}
