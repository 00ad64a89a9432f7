package server

import (
	"context"
	"log"
	"net/http"

	"economy-service/internal/config"
	hrest "economy-service/internal/handler/rest"
	publisher "economy-service/internal/pub"
	"economy-service/internal/repository"
	"economy-service/internal/service"
	"economy-service/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// NewEconomyServer wires the whole service and blocks serving HTTP.
func NewEconomyServer(cfg config.AppConfig, members service.MemberSource) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := config.EnsureSchema(context.Background(), dbpool); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Publisher ---
	pub := publisher.NewTransactionEventPublisher(rdb, cfg.KafkaBrokers)
	defer pub.Close()

	// --- Repositories ---
	accountRepo := repository.NewAccountRepo(dbpool)
	assetRepo := repository.NewAssetRepo(dbpool)
	txnRepo := repository.NewTransactionRepo(dbpool)
	postingRepo := repository.NewPostingRepo(dbpool)
	balanceRepo := repository.NewBalanceRepo(dbpool)
	ledgerRepo := repository.NewLedgerRepo(dbpool, accountRepo, txnRepo, postingRepo, balanceRepo)
	bankRepo := repository.NewBankRepo(dbpool)
	rewardRepo := repository.NewAutoRewardRepo(dbpool)
	planRepo := repository.NewRolePlanRepo(dbpool)
	allowanceRepo := repository.NewAllowanceRepo(dbpool)
	betRepo := repository.NewBettingRepo(dbpool)
	vcRepo := repository.NewVCRepo(dbpool)

	// --- Usecases ---
	accountUC := usecase.NewAccountUsecase(accountRepo, rdb)
	assetUC := usecase.NewAssetUsecase(assetRepo, accountUC, ledgerRepo, rdb)
	ledgerUC := usecase.NewLedgerUsecase(ledgerRepo, balanceRepo, postingRepo, txnRepo, accountUC, rdb, pub)
	transferUC := usecase.NewTransferUsecase(assetUC, accountUC, ledgerUC)
	bankUC := usecase.NewBankUsecase(bankRepo, assetUC, accountUC, ledgerUC, ledgerRepo)
	rewardUC := usecase.NewAutoRewardUsecase(rewardRepo, assetUC, accountUC, ledgerUC, ledgerRepo)
	planUC := usecase.NewRolePlanUsecase(planRepo, assetUC, accountUC, ledgerUC, ledgerRepo)
	allowanceUC := usecase.NewAllowanceUsecase(allowanceRepo, assetUC, accountUC, ledgerUC, ledgerRepo)
	bettingUC := usecase.NewBettingUsecase(betRepo, assetUC, accountUC, ledgerUC, ledgerRepo, pub)
	vcUC := usecase.NewVCEarningUsecase(vcRepo, assetUC, accountUC, ledgerUC)

	// --- Sweeper ---
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	defer cancelSweeps()
	sweeper := service.NewSweeper(planUC, allowanceUC, vcUC, members, pub)
	sweeper.Start(sweepCtx)

	// --- REST Handler ---
	handler := hrest.NewEconomyRestHandler(
		assetUC, accountUC, ledgerUC, transferUC,
		bankUC, rewardUC, planUC, allowanceUC, bettingUC, vcUC,
	)

	log.Printf("Economy HTTP server listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, handler.Router()); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
