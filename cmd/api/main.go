// @title           DeskRAG API
// @version         1.0
// @description     Local-first document question answering with citation-grounded answers and abstention.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"deskrag/internal/config"
	"deskrag/internal/data/store"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/handlers"
	"deskrag/internal/job"
	"deskrag/internal/rag"
	"deskrag/internal/rag/embedding"
	"deskrag/internal/rag/ingest"
	"deskrag/internal/rag/llm"
	"deskrag/internal/rag/llm/nvidiaLLM"
	"deskrag/internal/rag/llm/ollamaLLM"
	"deskrag/internal/rag/rerank"
	"deskrag/internal/rag/retrieval"
	"deskrag/internal/rag/vectorDB/qdrantDB"
	"deskrag/internal/server"
	"deskrag/internal/worker"
	"deskrag/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	config.Load()
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//job state lives in redis when it is up, in memory otherwise
	var jobStore jobmodel.JobStore
	if redisJobStore := store.GetRedisJobStore(serviceContext); redisJobStore != nil {
		jobStore = redisJobStore
	} else {
		logger.Warn("Redis job store is offline, falling back to in-memory store")
		jobStore = store.InitInMemoryJobStore()
	}

	logger.Info("Starting job service")
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	})

	sqlStore, err := store.NewStore(config.SqlitePath)
	if err != nil {
		logger.Error("Could not open the sqlite store. Shutting down.", "path", config.SqlitePath, "error", err)
		return
	}
	defer sqlStore.Close()

	vectorIndex := qdrantDB.GetQdrantClient(serviceContext)
	if vectorIndex == nil {
		logger.Error("Qdrant is unreachable. Shutting down.")
		return
	}

	embedder := embedding.GetOllamaEmbedder()
	reranker := rerank.GetReranker() //nil when RERANK_BASE_URL is unset

	var provider llm.Provider
	switch config.LLMProvider {
	case config.ProviderNvidia:
		provider = nvidiaLLM.GetNvidiaClient()
	default:
		provider = ollamaLLM.GetOllamaClient()
	}
	router := llm.NewRouter(provider, config.LLMProvider)

	orchestrator := retrieval.New(embedder, vectorIndex, reranker)
	coordinator := ingest.NewCoordinator(sqlStore, embedder, vectorIndex)
	ragService := rag.NewService(orchestrator, router, vectorIndex, sqlStore, coordinator)

	probes := map[string]handlers.HealthProbe{
		"qdrant": func(ctx context.Context) error {
			_, err := vectorIndex.QObj.HealthCheck(ctx)
			return err
		},
		"llm": func(ctx context.Context) error {
			_, err := provider.ListModels(ctx)
			return err
		},
	}

	handlers.InitJobHandler(jobService, ragService, sqlStore, probes)

	//init worker pool
	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
