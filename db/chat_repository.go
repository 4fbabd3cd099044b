package db

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	messagesCollection = "messages"
	usersCollection    = "users"
	typingCollection   = "typingStatus"
)

// Event is one live update pushed by the conversation store. Updates for a
// given document arrive in commit order, but there is no ordering guarantee
// across documents: a reaction can arrive before the message it targets.
type Event struct {
	Kind    EventKind
	Message *models.Message
	Profile *models.UserProfile
	UID     string
	Typing  bool
}

type EventKind int

const (
	EventMessageAdded EventKind = iota
	EventMessageModified
	EventProfileUpdated
	EventTypingUpdated
	EventTypingRemoved
)

// ChatRepository is the conversation store contract: messages are append-only
// (reaction appends aside), profiles and presence are small mutable
// side-records, and Subscribe pushes live updates at-least-once.
type ChatRepository interface {
	Messages(ctx context.Context) ([]models.Message, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	AddReaction(ctx context.Context, messageID string, reaction models.Reaction) error
	Users(ctx context.Context) (map[string]models.UserProfile, error)
	GetUser(ctx context.Context, uid string) (*models.UserProfile, error)
	SetUser(ctx context.Context, uid string, fields map[string]interface{}) error
	MarkDeleted(ctx context.Context, uid string) error
	SetTyping(ctx context.Context, uid string, typing bool) error
	DeleteTyping(ctx context.Context, uid string) error
	Subscribe(ctx context.Context, events chan<- Event)
}

type chatRepo struct {
	logger *zap.SugaredLogger
	client *firestore.Client
}

func NewChatRepo(logger *zap.SugaredLogger, client *firestore.Client) ChatRepository {
	return &chatRepo{
		logger: logger,
		client: client,
	}
}

// Messages fetches the full history ordered by server timestamp ascending.
// Equal timestamps from concurrent authors are broken by document id further up
// in the timeline, so the order every client computes is identical.
func (r *chatRepo) Messages(ctx context.Context) ([]models.Message, error) {
	iter := r.client.Collection(messagesCollection).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var msgs []models.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying messages")
		}
		msg, err := docToMessage(doc)
		if err != nil {
			r.logger.Warnf("skipping malformed message %s: %v", doc.Ref.ID, err)
			continue
		}
		msgs = append(msgs, *msg)
	}
	return msgs, nil
}

func (r *chatRepo) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	doc, err := r.client.Collection(messagesCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "getting message %s", id)
	}
	return docToMessage(doc)
}

// AddMessage persists one message and reads it back so the caller holds the
// store-assigned id and server timestamp rather than a local guess.
func (r *chatRepo) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.Reactions == nil {
		msg.Reactions = []models.Reaction{}
	}
	ref, _, err := r.client.Collection(messagesCollection).Add(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "adding message")
	}

	doc, err := ref.Get(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "reading back message %s", ref.ID)
	}
	return docToMessage(doc)
}

// AddReaction appends a reaction unless the same (emoji, uid) pair is already
// present. This is a read-modify-write, not a transaction across clients: two
// users adding the identical emoji within one round-trip window can both land.
// Duplicate suppression on read keeps the display correct regardless.
func (r *chatRepo) AddReaction(ctx context.Context, messageID string, reaction models.Reaction) error {
	ref := r.client.Collection(messagesCollection).Doc(messageID)
	doc, err := ref.Get(ctx)
	if err != nil {
		return errors.Wrapf(err, "getting message %s for reaction", messageID)
	}

	msg, err := docToMessage(doc)
	if err != nil {
		return err
	}
	if msg.HasReaction(reaction) {
		return nil
	}

	_, err = ref.Update(ctx, []firestore.Update{
		{Path: "reactions", Value: append(msg.Reactions, reaction)},
	})
	return errors.Wrapf(err, "updating reactions on %s", messageID)
}

func (r *chatRepo) Users(ctx context.Context) (map[string]models.UserProfile, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	users := make(map[string]models.UserProfile)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		var profile models.UserProfile
		if err := doc.DataTo(&profile); err != nil {
			r.logger.Warnf("skipping malformed profile %s: %v", doc.Ref.ID, err)
			continue
		}
		profile.UID = doc.Ref.ID
		users[doc.Ref.ID] = profile
	}
	return users, nil
}

func (r *chatRepo) GetUser(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "getting user %s", uid)
	}
	var profile models.UserProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Wrapf(err, "decoding user %s", uid)
	}
	profile.UID = doc.Ref.ID
	return &profile, nil
}

func (r *chatRepo) SetUser(ctx context.Context, uid string, fields map[string]interface{}) error {
	_, err := r.client.Collection(usersCollection).Doc(uid).Set(ctx, fields, firestore.MergeAll)
	return errors.Wrapf(err, "setting user %s", uid)
}

// MarkDeleted scrubs the name fields to the sentinel and flags the profile
// deactivated. The document stays so old messages still resolve an author.
func (r *chatRepo) MarkDeleted(ctx context.Context, uid string) error {
	_, err := r.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "firstName", Value: models.DeletedFirstName},
		{Path: "surname", Value: models.DeletedSurname},
		{Path: "deactivated", Value: true},
	})
	return errors.Wrapf(err, "marking user %s deleted", uid)
}

func (r *chatRepo) SetTyping(ctx context.Context, uid string, typing bool) error {
	_, err := r.client.Collection(typingCollection).Doc(uid).Set(ctx, models.TypingStatus{Typing: typing})
	return errors.Wrapf(err, "setting typing status for %s", uid)
}

// DeleteTyping removes the presence record outright so other clients' maps do
// not keep dead entries after the user leaves the conversation.
func (r *chatRepo) DeleteTyping(ctx context.Context, uid string) error {
	_, err := r.client.Collection(typingCollection).Doc(uid).Delete(ctx)
	return errors.Wrapf(err, "deleting typing status for %s", uid)
}

// Subscribe watches the three collections and forwards document changes on the
// events channel until ctx is done. Delivery is at-least-once; consumers must
// treat duplicates as no-ops.
func (r *chatRepo) Subscribe(ctx context.Context, events chan<- Event) {
	go r.watchMessages(ctx, events)
	go r.watchUsers(ctx, events)
	go r.watchTyping(ctx, events)
}

func (r *chatRepo) watchMessages(ctx context.Context, events chan<- Event) {
	snaps := r.client.Collection(messagesCollection).OrderBy("timestamp", firestore.Asc).Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				r.logger.Warnf("messages subscription ended: %v", err)
			}
			return
		}
		for _, change := range snap.Changes {
			msg, err := docToMessage(change.Doc)
			if err != nil {
				r.logger.Warnf("dropping malformed message change %s: %v", change.Doc.Ref.ID, err)
				continue
			}
			switch change.Kind {
			case firestore.DocumentAdded:
				events <- Event{Kind: EventMessageAdded, Message: msg}
			case firestore.DocumentModified:
				events <- Event{Kind: EventMessageModified, Message: msg}
			}
		}
	}
}

func (r *chatRepo) watchUsers(ctx context.Context, events chan<- Event) {
	snaps := r.client.Collection(usersCollection).Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				r.logger.Warnf("users subscription ended: %v", err)
			}
			return
		}
		for _, change := range snap.Changes {
			if change.Kind == firestore.DocumentRemoved {
				continue
			}
			var profile models.UserProfile
			if err := change.Doc.DataTo(&profile); err != nil {
				r.logger.Warnf("dropping malformed profile change %s: %v", change.Doc.Ref.ID, err)
				continue
			}
			profile.UID = change.Doc.Ref.ID
			events <- Event{Kind: EventProfileUpdated, Profile: &profile, UID: profile.UID}
		}
	}
}

func (r *chatRepo) watchTyping(ctx context.Context, events chan<- Event) {
	snaps := r.client.Collection(typingCollection).Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled {
				r.logger.Warnf("typing subscription ended: %v", err)
			}
			return
		}
		for _, change := range snap.Changes {
			uid := change.Doc.Ref.ID
			if change.Kind == firestore.DocumentRemoved {
				events <- Event{Kind: EventTypingRemoved, UID: uid}
				continue
			}
			var ts models.TypingStatus
			if err := change.Doc.DataTo(&ts); err != nil {
				r.logger.Warnf("dropping malformed typing change %s: %v", uid, err)
				continue
			}
			events <- Event{Kind: EventTypingUpdated, UID: uid, Typing: ts.Typing}
		}
	}
}

func docToMessage(doc *firestore.DocumentSnapshot) (*models.Message, error) {
	var msg models.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Wrapf(err, "decoding message %s", doc.Ref.ID)
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}
