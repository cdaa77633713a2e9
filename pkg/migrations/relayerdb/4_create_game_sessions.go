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
		log.Println("creating game_sessions table...")
		if err := mghelper.CreateSchema(ctx, db, &rewardstore.GameSessionDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &rewardstore.GameSessionDao{}, "user_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping game_sessions table...")
		return mghelper.DropTables(ctx, db, &rewardstore.GameSessionDao{})
	})
}
