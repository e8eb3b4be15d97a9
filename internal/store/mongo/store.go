// Package mongo implements the console's document store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
)

// Collection names.
const (
	UsersCollection       = "User"
	TemplatesCollection   = "Templates"
	SubmissionsCollection = "FormSubmissions"
	ActivityCollection    = "activity"
)

// Store is a core.Store backed by a MongoDB database.
type Store struct {
	client      *mongo.Client
	users       *mongo.Collection
	templates   *mongo.Collection
	submissions *mongo.Collection
	activity    *mongo.Collection
}

var _ core.Store = (*Store)(nil)

// Open connects to the database named in cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(uint64(cfg.MaxConns)).
		SetMinPoolSize(uint64(cfg.MinConns)).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return New(client, cfg.Name), nil
}

// New wraps an existing client.
func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:      client,
		users:       db.Collection(UsersCollection),
		templates:   db.Collection(TemplatesCollection),
		submissions: db.Collection(SubmissionsCollection),
		activity:    db.Collection(ActivityCollection),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, uid string) (*core.User, error) {
	var u core.User
	if err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		return nil, notFound(err, "user", uid)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, statuses ...core.UserStatus) ([]core.User, error) {
	var users []core.User
	if err := s.findAll(ctx, s.users, statusFilter(statuses), nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) SetUserStatus(ctx context.Context, uid string, change core.StatusChange) error {
	return s.setFields(ctx, s.users, "user", uid, change)
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": uid})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	if res.DeletedCount == 0 {
		return core.NewNotFound("user", uid)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Templates
// ----------------------------------------------------------------------------

func (s *Store) GetTemplate(ctx context.Context, id string) (*core.Template, error) {
	var t core.Template
	if err := s.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, notFound(err, "template", id)
	}
	return &t, nil
}

func (s *Store) GetTemplates(ctx context.Context, ids []string) (map[string]*core.Template, error) {
	out := make(map[string]*core.Template, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var tmpls []core.Template
	if err := s.findAll(ctx, s.templates, bson.M{"_id": bson.M{"$in": ids}}, nil, &tmpls); err != nil {
		return nil, fmt.Errorf("get templates: %w", err)
	}
	for i := range tmpls {
		out[tmpls[i].TemplateID] = &tmpls[i]
	}
	return out, nil
}

func (s *Store) ListTemplates(ctx context.Context, statuses ...core.TemplateStatus) ([]core.Template, error) {
	var tmpls []core.Template
	if err := s.findAll(ctx, s.templates, statusFilter(statuses), nil, &tmpls); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tmpls, nil
}

func (s *Store) SetTemplateStatus(ctx context.Context, id string, change core.StatusChange) error {
	return s.setFields(ctx, s.templates, "template", id, change)
}

// ----------------------------------------------------------------------------
// Submissions
// ----------------------------------------------------------------------------

func (s *Store) GetSubmission(ctx context.Context, id string) (*core.Submission, error) {
	var sub core.Submission
	if err := s.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		return nil, notFound(err, "submission", id)
	}
	normalizeSubmission(&sub)
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, q core.SubmissionQuery) ([]core.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: 1}})

	var subs []core.Submission
	if err := s.findAll(ctx, s.submissions, submissionFilter(q), opts, &subs); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for i := range subs {
		normalizeSubmission(&subs[i])
	}
	return subs, nil
}

func submissionFilter(q core.SubmissionQuery) bson.M {
	filter := bson.M{}
	if q.TemplateID != "" {
		filter["templateId"] = q.TemplateID
	}
	rng := bson.M{}
	if !q.SubmittedFrom.IsZero() {
		rng["$gte"] = q.SubmittedFrom.UTC()
	}
	if !q.SubmittedTo.IsZero() {
		rng["$lte"] = q.SubmittedTo.UTC()
	}
	if len(rng) > 0 {
		filter["submittedAt"] = rng
	}
	return filter
}

// ----------------------------------------------------------------------------
// Activity
// ----------------------------------------------------------------------------

func (s *Store) InsertActivity(ctx context.Context, a *core.Activity) error {
	if _, err := s.activity.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	var recs []core.Activity
	if err := s.findAll(ctx, s.activity, bson.M{}, opts, &recs); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	for i := range recs {
		recs[i].Metadata = normalizeMap(recs[i].Metadata)
	}
	return recs, nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (s *Store) findAll(ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, out any) error {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *Store) setFields(ctx context.Context, coll *mongo.Collection, resource, id string, change core.StatusChange) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(change.Fields())})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", resource, id, err)
	}
	if res.MatchedCount == 0 {
		return core.NewNotFound(resource, id)
	}
	return nil
}

func statusFilter[S ~string](statuses []S) bson.M {
	if len(statuses) == 0 {
		return bson.M{}
	}
	vals := make([]string, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}
	return bson.M{"status": bson.M{"$in": vals}}
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.NewNotFound(resource, id)
	}
	return fmt.Errorf("get %s %s: %w", resource, id, err)
}
