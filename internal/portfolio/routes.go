package portfolio

import (
	"github.com/go-chi/chi/v5"

	"portfolio-api/internal/observability"
)

// Mount registers the CRUD routes of every record kind on r.
func Mount(r chi.Router, store DocumentStore, logger *observability.Logger) {
	r.Route("/projects", NewHandler("Project", NewCollection[Project](KindProject, store), logger).Routes)
	r.Route("/skills", NewHandler("Skill", NewCollection[Skill](KindSkill, store), logger).Routes)
	r.Route("/certificates", NewHandler("Certificate", NewCollection[Certificate](KindCertificate, store), logger).Routes)
	r.Route("/experiences", NewHandler("Experience", NewCollection[Experience](KindExperience, store), logger).Routes)
}
