/******************************************************************************
*
*  Copyright 2019 SAP SE
*
*  Licensed under the Apache License, Version 2.0 (the "License");
*  you may not use this file except in compliance with the License.
*  You may obtain a copy of the License at
*
*      http://www.apache.org/licenses/LICENSE-2.0
*
*  Unless required by applicable law or agreed to in writing, software
*  distributed under the License is distributed on an "AS IS" BASIS,
*  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
*  See the License for the specific language governing permissions and
*  limitations under the License.
*
******************************************************************************/

// Package httpingress is ingress adapter (b) from §6: an instance snapshot
// arrives as a JSON HTTP body. Semantics are identical to the other two
// adapters; only deserialization differs.
package httpingress

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/httpapi"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/dbautoscaler/internal/core"
)

// Handler is the httpapi.API that exposes one tick endpoint.
type Handler struct {
	Orchestrator *core.Orchestrator
	StoreFactory core.StateStoreFactory

	// TimeNow is a dependency-injection slot for tests.
	TimeNow func() time.Time
}

var _ httpapi.API = (*Handler)(nil)

// NewHandler constructs a Handler.
func NewHandler(orchestrator *core.Orchestrator, storeFactory core.StateStoreFactory) *Handler {
	return &Handler{Orchestrator: orchestrator, StoreFactory: storeFactory, TimeNow: time.Now}
}

// AddTo implements the httpapi.API interface.
func (h *Handler) AddTo(router *mux.Router) {
	router.Methods("POST").
		Path(`/v1/ticks`).
		HandlerFunc(h.PostTick)
}

// PostTick implements POST /v1/ticks: decode one InstanceSnapshot from the
// request body and run a tick for it.
func (h *Handler) PostTick(w http.ResponseWriter, r *http.Request) {
	var snapshot core.InstanceSnapshot
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snapshot); err != nil {
		http.Error(w, "request body is not a valid instance snapshot: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	store, err := h.StoreFactory(ctx, snapshot)
	if respondwith.ErrorText(w, err) {
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error("could not close state store for instance %s in project %s: %s", snapshot.InstanceID, snapshot.ProjectID, err.Error())
		}
	}()

	now := h.TimeNow().UnixMilli()
	err = h.Orchestrator.Tick(ctx, store, snapshot, now)
	if err != nil {
		core.CaptureTickError(snapshot, err)
	}
	if respondwith.ErrorText(w, err) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
