package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"

	"github.com/google/uuid"
)

// In-memory repository fakes. Each one mirrors the real repository's
// contract: conditional transitions return the current row together with
// repositories.ErrConflict when the precondition fails, and every mutation is
// serialized behind a mutex so concurrency tests exercise real interleavings.

// --- shift repository fake ---

type fakeShiftRepo struct {
	mu     sync.Mutex
	shifts map[uuid.UUID]*models.ScheduledShift
	bids   *fakeBidRepo // settled together with ConfirmFromBid when set
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{shifts: make(map[uuid.UUID]*models.ScheduledShift)}
}

func (r *fakeShiftRepo) put(shift *models.ScheduledShift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts[shift.ID] = shift
}

func copyShift(s *models.ScheduledShift) *models.ScheduledShift {
	c := *s
	if s.MemberID != nil {
		id := *s.MemberID
		c.MemberID = &id
	}
	if s.PriorMemberID != nil {
		id := *s.PriorMemberID
		c.PriorMemberID = &id
	}
	return &c
}

func (r *fakeShiftRepo) GetShiftByID(id uuid.UUID) (*models.ScheduledShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shift, ok := r.shifts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyShift(shift), nil
}

func (r *fakeShiftRepo) GetShifts(filters models.ScheduleFilters) ([]models.ScheduledShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ScheduledShift{}
	for _, shift := range r.shifts {
		if filters.Status != nil && shift.Status != *filters.Status {
			continue
		}
		if filters.StartDate != nil && shift.ShiftDate.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && shift.ShiftDate.After(*filters.EndDate) {
			continue
		}
		if filters.MemberID != nil && (shift.MemberID == nil || *shift.MemberID != *filters.MemberID) {
			continue
		}
		out = append(out, *copyShift(shift))
	}
	return out, nil
}

func (r *fakeShiftRepo) Assign(shiftID, memberID uuid.UUID) (*models.ScheduledShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shift, ok := r.shifts[shiftID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if shift.Status != models.ShiftStatusOpen {
		return copyShift(shift), fmt.Errorf("%w: shift %s is %s", repositories.ErrConflict, shiftID, shift.Status)
	}
	shift.Status = models.ShiftStatusConfirmed
	shift.MemberID = &memberID
	return copyShift(shift), nil
}

func (r *fakeShiftRepo) OpenForBidding(shiftID uuid.UUID) (*models.ScheduledShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shift, ok := r.shifts[shiftID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if shift.Status != models.ShiftStatusConfirmed {
		return copyShift(shift), fmt.Errorf("%w: shift %s is %s", repositories.ErrConflict, shiftID, shift.Status)
	}
	shift.Status = models.ShiftStatusBidding
	shift.PriorMemberID = shift.MemberID
	shift.MemberID = nil
	return copyShift(shift), nil
}

func (r *fakeShiftRepo) ConfirmFromBid(shiftID, memberID, bidID uuid.UUID) (*models.ScheduledShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shift, ok := r.shifts[shiftID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if shift.Status != models.ShiftStatusBidding {
		return copyShift(shift), fmt.Errorf("%w: shift %s is %s", repositories.ErrConflict, shiftID, shift.Status)
	}
	if r.bids != nil {
		if !r.bids.award(bidID, shiftID) {
			return copyShift(shift), fmt.Errorf("%w: bid %s is not active on shift %s", repositories.ErrConflict, bidID, shiftID)
		}
	}
	shift.Status = models.ShiftStatusConfirmed
	shift.MemberID = &memberID
	return copyShift(shift), nil
}

func (r *fakeShiftRepo) Swap(shiftAID, memberAID, shiftBID, memberBID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, okA := r.shifts[shiftAID]
	b, okB := r.shifts[shiftBID]
	if !okA || !okB {
		return repositories.ErrNotFound
	}
	if a.Status != models.ShiftStatusConfirmed || a.MemberID == nil || *a.MemberID != memberAID {
		return fmt.Errorf("%w: shift %s ownership changed", repositories.ErrConflict, shiftAID)
	}
	if b.Status != models.ShiftStatusConfirmed || b.MemberID == nil || *b.MemberID != memberBID {
		return fmt.Errorf("%w: shift %s ownership changed", repositories.ErrConflict, shiftBID)
	}
	a.MemberID, b.MemberID = b.MemberID, a.MemberID
	return nil
}

// --- bid repository fake ---

type fakeBidRepo struct {
	mu     sync.Mutex
	bids   map[uuid.UUID]*models.ShiftBid
	shifts *fakeShiftRepo // when set, CreateBid re-checks the shift status like the real transaction
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{bids: make(map[uuid.UUID]*models.ShiftBid)}
}

func copyBid(b *models.ShiftBid) *models.ShiftBid {
	c := *b
	return &c
}

func (r *fakeBidRepo) CreateBid(bid *models.ShiftBid) (*models.ShiftBid, error) {
	// Lock order matches ConfirmFromBid: shift repo first, then the bid set.
	if r.shifts != nil {
		r.shifts.mu.Lock()
		defer r.shifts.mu.Unlock()
		shift, ok := r.shifts.shifts[bid.ShiftID]
		if !ok {
			return nil, repositories.ErrNotFound
		}
		if shift.Status != models.ShiftStatusBidding {
			return nil, fmt.Errorf("%w: shift %s is %s, not BIDDING", repositories.ErrConflict, bid.ShiftID, shift.Status)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bids {
		if existing.ShiftID == bid.ShiftID && existing.MemberID == bid.MemberID && existing.Status == models.BidStatusActive {
			return nil, fmt.Errorf("%w: active bid exists", repositories.ErrDuplicateKey)
		}
	}
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	bid.CreatedAt = time.Now()
	bid.UpdatedAt = bid.CreatedAt
	r.bids[bid.ID] = copyBid(bid)
	return copyBid(bid), nil
}

func (r *fakeBidRepo) GetBidByID(id uuid.UUID) (*models.ShiftBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.bids[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyBid(bid), nil
}

func (r *fakeBidRepo) GetBidsForShift(shiftID uuid.UUID) ([]models.ShiftBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ShiftBid{}
	for _, bid := range r.bids {
		if bid.ShiftID == shiftID {
			out = append(out, *copyBid(bid))
		}
	}
	return out, nil
}

func (r *fakeBidRepo) GetBidsForMember(memberID uuid.UUID) ([]models.ShiftBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ShiftBid{}
	for _, bid := range r.bids {
		if bid.MemberID == memberID {
			out = append(out, *copyBid(bid))
		}
	}
	return out, nil
}

func (r *fakeBidRepo) GetAwardedBidForShift(shiftID uuid.UUID) (*models.ShiftBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bid := range r.bids {
		if bid.ShiftID == shiftID && bid.Status == models.BidStatusAwarded {
			return copyBid(bid), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeBidRepo) Retract(bidID uuid.UUID) (*models.ShiftBid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bid, ok := r.bids[bidID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if bid.Status != models.BidStatusActive {
		return copyBid(bid), fmt.Errorf("%w: bid %s is %s", repositories.ErrConflict, bidID, bid.Status)
	}
	bid.Status = models.BidStatusRetracted
	return copyBid(bid), nil
}

// award settles the bid set for a shift the way the real repository does
// inside the confirm transaction. Returns false when bidID is not an ACTIVE
// bid on shiftID.
func (r *fakeBidRepo) award(bidID, shiftID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	winner, ok := r.bids[bidID]
	if !ok || winner.ShiftID != shiftID || winner.Status != models.BidStatusActive {
		return false
	}
	winner.Status = models.BidStatusAwarded
	for _, bid := range r.bids {
		if bid.ShiftID == shiftID && bid.ID != bidID && bid.Status == models.BidStatusActive {
			bid.Status = models.BidStatusLost
		}
	}
	return true
}

// --- member repository fake ---

type fakeMemberRepo struct {
	mu             sync.Mutex
	members        map[uuid.UUID]*models.Member
	qualifications map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{
		members:        make(map[uuid.UUID]*models.Member),
		qualifications: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *fakeMemberRepo) put(member *models.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.ID] = member
}

func (r *fakeMemberRepo) grant(memberID, qualificationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.qualifications[memberID] == nil {
		r.qualifications[memberID] = make(map[uuid.UUID]bool)
	}
	r.qualifications[memberID][qualificationID] = true
}

func (r *fakeMemberRepo) GetMembers() ([]models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Member{}
	for _, m := range r.members {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMemberRepo) GetMemberByID(id uuid.UUID) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeMemberRepo) GetMemberByUserID(userID uuid.UUID) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.UserID != nil && *m.UserID == userID {
			c := *m
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeMemberRepo) HasQualification(memberID, qualificationID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qualifications[memberID][qualificationID], nil
}

func (r *fakeMemberRepo) GetQualifications() ([]models.Qualification, error) {
	return []models.Qualification{}, nil
}

func (r *fakeMemberRepo) UserIDsForMembers(memberIDs []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []uuid.UUID{}
	for _, id := range memberIDs {
		if m, ok := r.members[id]; ok && m.UserID != nil {
			out = append(out, *m.UserID)
		}
	}
	return out, nil
}

// --- change request repository fake ---

type fakeChangeRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ShiftChangeRequest
}

func newFakeChangeRepo() *fakeChangeRepo {
	return &fakeChangeRepo{requests: make(map[uuid.UUID]*models.ShiftChangeRequest)}
}

func copyRequest(req *models.ShiftChangeRequest) *models.ShiftChangeRequest {
	c := *req
	return &c
}

func (r *fakeChangeRepo) CreateRequest(_ repositories.SQLExecutor, req *models.ShiftChangeRequest) (*models.ShiftChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	r.requests[req.ID] = copyRequest(req)
	return copyRequest(req), nil
}

func (r *fakeChangeRepo) GetRequestByID(id uuid.UUID) (*models.ShiftChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyRequest(req), nil
}

func (r *fakeChangeRepo) GetRequestsForMember(memberID uuid.UUID) ([]models.ShiftChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ShiftChangeRequest{}
	for _, req := range r.requests {
		if req.InitiatingMemberID == memberID || req.TargetMemberID == memberID {
			out = append(out, *copyRequest(req))
		}
	}
	return out, nil
}

func (r *fakeChangeRepo) GetRequestsByStatus(status models.ChangeRequestStatus) ([]models.ShiftChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ShiftChangeRequest{}
	for _, req := range r.requests {
		if req.Status == status {
			out = append(out, *copyRequest(req))
		}
	}
	return out, nil
}

func (r *fakeChangeRepo) UpdateStatus(id uuid.UUID, expected, next models.ChangeRequestStatus, resolutionNotes *string) (*models.ShiftChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if req.Status != expected {
		return copyRequest(req), fmt.Errorf("%w: request %s is %s, expected %s", repositories.ErrConflict, id, req.Status, expected)
	}
	req.Status = next
	if resolutionNotes != nil {
		req.ResolutionNotes = resolutionNotes
	}
	req.UpdatedAt = time.Now()
	return copyRequest(req), nil
}

// --- notification repository fake ---

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*models.Notification
	createErr     error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uuid.UUID]*models.Notification)}
}

func (r *fakeNotificationRepo) CreateNotifications(_ repositories.SQLExecutor, notifications []models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for i := range notifications {
		n := &notifications[i]
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = time.Now()
		n.UpdatedAt = n.CreatedAt
		c := *n
		r.notifications[n.ID] = &c
	}
	return nil
}

func (r *fakeNotificationRepo) GetNotificationByID(id uuid.UUID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *n
	return &c, nil
}

func (r *fakeNotificationRepo) GetNotificationsForUser(userID uuid.UUID, includeArchived bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if !includeArchived && n.Status == models.NotificationStatusArchived {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnreadForUser(userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && n.Status == models.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(id, userID uuid.UUID) (*models.Notification, error) {
	return r.transition(id, userID, models.NotificationStatusUnread, models.NotificationStatusRead)
}

func (r *fakeNotificationRepo) Archive(id, userID uuid.UUID) (*models.Notification, error) {
	return r.transition(id, userID, models.NotificationStatusRead, models.NotificationStatusArchived)
}

func (r *fakeNotificationRepo) transition(id, userID uuid.UUID, expected, next models.NotificationStatus) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if n.UserID != userID || n.Status != expected {
		c := *n
		return &c, fmt.Errorf("%w: notification %s is %s, not %s", repositories.ErrConflict, id, n.Status, expected)
	}
	n.Status = next
	n.UpdatedAt = time.Now()
	c := *n
	return &c, nil
}

// --- auth repository fake ---

type fakeAuthRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	roles map[string]*models.Role
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users: make(map[uuid.UUID]*models.User),
		roles: make(map[string]*models.Role),
	}
}

func (r *fakeAuthRepo) putRole(role *models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.Name] = role
}

func (r *fakeAuthRepo) putUser(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *fakeAuthRepo) CreateUser(_ repositories.SQLExecutor, user *models.User, hashedPassword string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return uuid.Nil, fmt.Errorf("%w: users_username_key", repositories.ErrDuplicateKey)
		}
		if existing.Email != nil && user.Email != nil && *existing.Email == *user.Email {
			return uuid.Nil, fmt.Errorf("%w: users_email_key", repositories.ErrDuplicateKey)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.PasswordHash = hashedPassword
	c := *user
	r.users[user.ID] = &c
	return user.ID, nil
}

func (r *fakeAuthRepo) FindUserByUsername(username string) (*models.User, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, u.PasswordHash, nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (r *fakeAuthRepo) FindUserByID(userID uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeAuthRepo) FindRoleByName(name string) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *role
	return &c, nil
}

func (r *fakeAuthRepo) ListManagerUserIDs() ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []uuid.UUID{}
	for _, u := range r.users {
		if u.IsActive && u.Role != nil && (u.Role.Name == models.RoleAdmin || u.Role.Name == models.RoleManager) {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

// --- contract fakes ---

type fakeAuthorizer struct {
	managers map[uuid.UUID]bool
}

func (a *fakeAuthorizer) HasManagerCapability(actorID uuid.UUID) (bool, error) {
	return a.managers[actorID], nil
}

type capturedNotification struct {
	recipients []uuid.UUID
	message    string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []capturedNotification
}

func (n *captureNotifier) Notify(recipientIDs []uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, capturedNotification{recipients: recipientIDs, message: message})
}

func (n *captureNotifier) messagesFor(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []string{}
	for _, sent := range n.sent {
		for _, r := range sent.recipients {
			if r == userID {
				out = append(out, sent.message)
			}
		}
	}
	return out
}

type fakeSolverClient struct {
	mu        sync.Mutex
	submitErr error
	problemID string
	statuses  []models.SolverStatus // consumed one per Status call, last repeats
	statusErr error
	result    []models.SolverAssignment
	resultErr error
	calls     int
	seq       int
}

func (c *fakeSolverClient) Submit(_ context.Context, year, month int) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	if c.problemID != "" {
		return c.problemID, nil
	}
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	return fmt.Sprintf("problem-%d-%02d-%d", year, month, seq), nil
}

func (c *fakeSolverClient) Status(_ context.Context, _ string) (models.SolverStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return "", c.statusErr
	}
	if len(c.statuses) == 0 {
		return models.SolverStatusActive, nil
	}
	status := c.statuses[0]
	if len(c.statuses) > 1 {
		c.statuses = c.statuses[1:]
	}
	c.calls++
	return status, nil
}

func (c *fakeSolverClient) Result(_ context.Context, _ string) ([]models.SolverAssignment, error) {
	if c.resultErr != nil {
		return nil, c.resultErr
	}
	return c.result, nil
}

type capturePusher struct {
	mu     sync.Mutex
	pushed []models.Notification
}

func (p *capturePusher) Push(_ uuid.UUID, notification models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, notification)
}

func (p *capturePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed)
}

// --- shared fixtures ---

func strPtr(s string) *string { return &s }

func newTestMember(userID *uuid.UUID) *models.Member {
	return &models.Member{
		ID:        uuid.New(),
		UserID:    userID,
		FirstName: "Alex",
		LastName:  "Smith",
		IsActive:  true,
	}
}

func newTestShift(status models.ShiftStatus, memberID *uuid.UUID) *models.ScheduledShift {
	return &models.ScheduledShift{
		ID:         uuid.New(),
		ShiftDate:  time.Now().AddDate(0, 0, 7),
		StartTime:  "08:00",
		EndTime:    "16:00",
		LocationID: uuid.New(),
		TemplateID: uuid.New(),
		Status:     status,
		MemberID:   memberID,
	}
}
