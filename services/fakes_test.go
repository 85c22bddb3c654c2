package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lms-module/config"
	"lms-module/errors"
	"lms-module/models"
	"lms-module/services/mpesa"

	"github.com/shopspring/decimal"
)

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:     "https://lms.example.com",
		HTTPTimeout: time.Second,
	}
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

type fakeCourses struct {
	courses map[string]*models.Course
}

func (f *fakeCourses) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, errors.E(errors.NotFound, "course "+id+" not found")
	}
	cp := *c
	return &cp, nil
}

type fakeProfiles struct {
	profiles map[string]*models.PurchaserProfile
}

func (f *fakeProfiles) GetProfile(ctx context.Context, purchaserID string) (*models.PurchaserProfile, error) {
	p, ok := f.profiles[purchaserID]
	if !ok {
		return nil, errors.E(errors.NotFound, "purchaser "+purchaserID+" not found")
	}
	cp := *p
	return &cp, nil
}

type fakeStudents struct {
	mu          sync.Mutex
	byPurchaser map[string]*models.Student
	lookupErr   error
	upserts     int
}

func newFakeStudents(students ...*models.Student) *fakeStudents {
	f := &fakeStudents{byPurchaser: map[string]*models.Student{}}
	for _, st := range students {
		f.byPurchaser[st.PurchaserID] = st
	}
	return f
}

func (f *fakeStudents) UpsertStudent(ctx context.Context, p models.PurchaserProfile) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if st, ok := f.byPurchaser[p.ID]; ok {
		return st, nil
	}
	st := &models.Student{ID: "s-" + p.ID, PurchaserID: p.ID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName}
	f.byPurchaser[p.ID] = st
	return st, nil
}

func (f *fakeStudents) GetStudentByPurchaser(ctx context.Context, purchaserID string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	st, ok := f.byPurchaser[purchaserID]
	if !ok {
		return nil, errors.E(errors.NotFound, "no student for purchaser "+purchaserID)
	}
	return st, nil
}

// fakeEnrollments enforces uniqueness on (student, course, payment) like the
// real table does.
type fakeEnrollments struct {
	mu      sync.Mutex
	calls   []models.NewEnrollment
	records []models.Enrollment
	err     error
	// stall makes writes wait for the context like a hung database
	stall bool
}

func (f *fakeEnrollments) CreateEnrollment(ctx context.Context, ne models.NewEnrollment) (*models.Enrollment, bool, error) {
	if f.stall {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ne)
	if f.err != nil {
		return nil, false, f.err
	}
	for _, e := range f.records {
		if e.StudentID == ne.StudentID && e.CourseID == ne.CourseID && e.PaymentID == ne.PaymentID {
			cp := e
			return &cp, false, nil
		}
	}
	e := models.Enrollment{
		ID:        fmt.Sprintf("e%d", len(f.records)+1),
		StudentID: ne.StudentID,
		CourseID:  ne.CourseID,
		PaymentID: ne.PaymentID,
		Amount:    ne.Amount,
		Source:    ne.Source,
		CreatedAt: time.Now(),
	}
	f.records = append(f.records, e)
	return &e, true, nil
}

type paymentMark struct {
	merchantRequestID, status, receipt string
}

type fakeRequests struct {
	mu         sync.Mutex
	byMerchant map[string]*models.PaymentRequest
	saved      []models.PaymentRequest
	marks      []paymentMark
	lookupErr  error
	// the next saveFailures saves return saveErr
	saveFailures int
	saveErr      error
	saveCalls    int
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{byMerchant: map[string]*models.PaymentRequest{}}
}

func (f *fakeRequests) SavePaymentRequest(ctx context.Context, p models.PaymentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveFailures > 0 {
		f.saveFailures--
		return f.saveErr
	}
	f.saved = append(f.saved, p)
	cp := p
	f.byMerchant[p.MerchantRequestID] = &cp
	return nil
}

func (f *fakeRequests) GetPaymentRequestByMerchantID(ctx context.Context, id string) (*models.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.byMerchant[id]
	if !ok {
		return nil, errors.E(errors.NotFound, "payment request "+id+" not found")
	}
	return p, nil
}

func (f *fakeRequests) MarkPaymentRequest(ctx context.Context, id, status, receipt, resultDesc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, paymentMark{id, status, receipt})
	return nil
}

type fakeCallbackLog struct {
	mu         sync.Mutex
	deliveries map[string]int
	statuses   map[string]string
}

func newFakeCallbackLog() *fakeCallbackLog {
	return &fakeCallbackLog{deliveries: map[string]int{}, statuses: map[string]string{}}
}

func (f *fakeCallbackLog) LogCallback(ctx context.Context, checkoutID, merchantID string, resultCode *int, payload []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries[checkoutID]++
	return f.deliveries[checkoutID], nil
}

func (f *fakeCallbackLog) UpdateCallbackStatus(ctx context.Context, checkoutID, status, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[checkoutID] = status
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	tokenErr   error
	ack        *mpesa.GatewayAck
	submitErr  error
	tokenCalls int
	submitted  []mpesa.PaymentRequest
	ctxErrs    []error
}

func (f *fakeGateway) FetchAccessToken(ctx context.Context) (mpesa.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok", nil
}

func (f *fakeGateway) NewPaymentRequest(amount int64, phone, callbackURL, accountReference, description string) mpesa.PaymentRequest {
	return mpesa.PaymentRequest{
		BusinessShortCode: "174379",
		TransactionType:   mpesa.TransactionTypePayBill,
		Amount:            amount,
		PartyA:            phone,
		PartyB:            "174379",
		PhoneNumber:       phone,
		CallBackURL:       callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}
}

func (f *fakeGateway) SubmitPushPayment(ctx context.Context, req mpesa.PaymentRequest, token mpesa.AccessToken) (*mpesa.GatewayAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.ack, nil
}

type publishedEvent struct {
	topic, key, event string
	payload           map[string]interface{}
	deadline          time.Time
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, _ := value.(map[string]interface{})
	event, _ := payload["event"].(string)
	deadline, _ := ctx.Deadline()
	f.events = append(f.events, publishedEvent{topic: topic, key: key, event: event, payload: payload, deadline: deadline})
	return f.err
}

func (f *fakePublisher) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}
