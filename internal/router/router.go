package router

import (
	"net/http"

	"github.com/senyabanana/tender-service/internal/handlers"
	"github.com/senyabanana/tender-service/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func InitRoutes(tenderHandler *handlers.TenderHandler, bidHandler *handlers.BidHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendErrorResponse(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.SendErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlers.PingHandler)

		r.Route("/tenders", func(r chi.Router) {
			r.Get("/", tenderHandler.GetTenders)
			r.Post("/new", tenderHandler.CreateTender)
			r.Post("/bulk_delete", tenderHandler.BulkDeleteTenders)

			r.Route("/{tenderId}", func(r chi.Router) {
				r.Get("/", tenderHandler.GetTender)
				r.Delete("/", tenderHandler.DeleteTender)
				r.Patch("/edit", tenderHandler.EditTender)
				r.Put("/publish", tenderHandler.PublishTender)
				r.Put("/extend", tenderHandler.ExtendDeadline)
				r.Put("/close", tenderHandler.CloseTender)
				r.Put("/begin_evaluation", tenderHandler.BeginEvaluation)
				r.Put("/award", tenderHandler.AwardTender)
				r.Put("/cancel", tenderHandler.CancelTender)
			})
		})

		r.Route("/bids", func(r chi.Router) {
			r.Post("/new", bidHandler.CreateBid)
			r.Get("/my", bidHandler.GetUserBid)
			r.Get("/{tenderId}/list", bidHandler.GetTenderBid)
			r.Get("/{tenderId}/ranking", bidHandler.GetBidRanking)
			r.Put("/{bidId}/withdraw", bidHandler.WithdrawBid)
			r.Put("/{bidId}/score", bidHandler.ScoreBid)
			r.Patch("/{bidId}/notes", bidHandler.EditBidNotes)
		})
	})

	return r
}
