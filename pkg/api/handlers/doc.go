// Package handlers implements the HTTP endpoints of the experiment API.
//
// Routes:
//
//	POST /v1/experiments                            create a draft
//	GET  /v1/experiments?state=&creator=&type=      list experiments
//	GET  /v1/experiments/{id}                       fetch one experiment
//	POST /v1/experiments/{id}/submit                draft to pending
//	POST /v1/experiments/{id}/start                 admit and run
//	POST /v1/experiments/{id}/results               record a result
//	POST /v1/experiments/{id}/complete              score and complete
//	POST /v1/experiments/{id}/fail                  fail with a reason
//	POST /v1/experiments/{id}/cancel                cancel
//	POST /v1/experiments/{id}/validation-notes      attach a reviewer note
//	POST /v1/experiments/{id}/promote               promote a validated experiment
//	GET  /v1/statistics                             aggregate counts
//
// Lifecycle errors are mapped by api.HandleError. Admission denials answer
// 429 with a Retry-After header.
package handlers
