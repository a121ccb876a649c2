package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/EzzalddeenAli/recticket/whatsapp"
	"golang.org/x/sync/errgroup"
)

type CustomFieldInput struct {
	ID    uint   `json:"id"`
	Key   string `json:"key" validate:"required,max=255"`
	Value string `json:"value" validate:"max=1024"`
}

type CreateContactInput struct {
	Name       string             `json:"name" validate:"max=255"`
	Number     string             `json:"number" validate:"required,phone"`
	Email      string             `json:"email" validate:"omitempty,email"`
	LocationID *uint              `json:"locationId"`
	ExtraInfo  []CustomFieldInput `json:"extraInfo" validate:"dive"`
}

// UpdateContactInput nil 表示不修改；ExtraInfo 非 nil 时按集合差异同步
type UpdateContactInput struct {
	Name       *string             `json:"name" validate:"omitempty,max=255"`
	Number     *string             `json:"number" validate:"omitempty,phone"`
	Email      *string             `json:"email" validate:"omitempty,email"`
	LocationID *uint               `json:"locationId"`
	ExtraInfo  *[]CustomFieldInput `json:"extraInfo" validate:"omitempty,dive"`
}

type ContactList struct {
	Contacts []models.Contact `json:"contacts"`
	Count    int64            `json:"count"`
	HasMore  bool             `json:"hasMore"`
}

type ContactService struct {
	contacts  ContactStore
	connector whatsapp.Provider
}

func NewContactService(contacts ContactStore, connector whatsapp.Provider) *ContactService {
	return &ContactService{contacts: contacts, connector: connector}
}

// List GET /contacts
func (s *ContactService) List(ctx context.Context, filter query.ContactFilter, page query.Page) (*ContactList, error) {
	contacts, total, err := s.contacts.Search(ctx, filter.Predicate(), page)
	if err != nil {
		return nil, err
	}
	return &ContactList{
		Contacts: contacts,
		Count:    total,
		HasMore:  page.HasMore(total, len(contacts)),
	}, nil
}

// Get 包含附加信息
func (s *ContactService) Get(ctx context.Context, id uint) (*models.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, id, true)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	return contact, err
}

// defaultSession 取默认会话，连接器层的错误转换为服务层错误
func defaultSession(ctx context.Context, p whatsapp.Provider) (*models.Whatsapp, whatsapp.Client, error) {
	wa, client, err := p.Default(ctx)
	switch {
	case errors.Is(err, whatsapp.ErrNoDefault):
		return nil, nil, ErrNoDefaultConnector
	case err != nil:
		return nil, nil, fmt.Errorf("load default whatsapp: %w", err)
	}
	return wa, client, nil
}

// Create 号码必须是默认会话上已注册的 WhatsApp 用户，头像获取失败不影响创建
func (s *ContactService) Create(ctx context.Context, in CreateContactInput) (*models.Contact, events.Outbox, error) {
	in.Number = strings.TrimSpace(in.Number)
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}

	_, client, err := defaultSession(ctx, s.connector)
	if err != nil {
		return nil, nil, err
	}

	registered, err := client.IsRegisteredUser(ctx, in.Number)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("number", in.Number).Error("whatsapp registration check failed")
		return nil, nil, ErrConnectorUnavailable
	}
	if !registered {
		return nil, nil, ErrInvalidContactNumber
	}

	profilePicURL, err := client.GetProfilePicURL(ctx, in.Number)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("number", in.Number).Warn("failed to fetch profile picture")
		profilePicURL = ""
	}

	contact := &models.Contact{
		Name:          in.Name,
		Number:        in.Number,
		Email:         in.Email,
		ProfilePicURL: profilePicURL,
		LocationID:    in.LocationID,
	}
	for _, f := range in.ExtraInfo {
		contact.ExtraInfo = append(contact.ExtraInfo, models.ContactCustomField{Key: f.Key, Value: f.Value})
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, nil, ErrContactNumberTaken
		case errors.Is(err, store.ErrInvalidReference):
			return nil, nil, invalid("locationId", "location does not exist")
		}
		return nil, nil, fmt.Errorf("create contact: %w", err)
	}

	return contact, events.Of(events.ContactChanged(events.ActionCreate, contact)), nil
}

// Update 先同步附加信息，再更新联系人本身
func (s *ContactService) Update(ctx context.Context, id uint, in UpdateContactInput) (*models.Contact, events.Outbox, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if in.ExtraInfo != nil {
		if err := s.reconcile(ctx, existing, *in.ExtraInfo); err != nil {
			return nil, nil, fmt.Errorf("reconcile extra info: %w", err)
		}
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Number != nil {
		fields["number"] = strings.TrimSpace(*in.Number)
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.LocationID != nil {
		fields["location_id"] = *in.LocationID
	}
	if err := s.contacts.Update(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, nil, ErrContactNotFound
		case errors.Is(err, store.ErrDuplicate):
			return nil, nil, ErrContactNumberTaken
		case errors.Is(err, store.ErrInvalidReference):
			return nil, nil, invalid("locationId", "location does not exist")
		}
		return nil, nil, fmt.Errorf("update contact: %w", err)
	}

	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return contact, events.Of(events.ContactChanged(events.ActionUpdate, contact)), nil
}

// fieldPlan 一次同步需要执行的写操作
type fieldPlan struct {
	upserts []models.ContactCustomField
	deletes []uint
}

// planFields 提交的字段按 id 匹配已有字段，没有 id 的按 key 匹配；
// 内容没变的不写，未被匹配到的已有字段删除
func planFields(contactID uint, existing []models.ContactCustomField, submitted []CustomFieldInput) fieldPlan {
	byID := make(map[uint]int, len(existing))
	byKey := make(map[string][]int)
	for i, f := range existing {
		byID[f.ID] = i
		byKey[f.Key] = append(byKey[f.Key], i)
	}
	claimed := make([]bool, len(existing))

	claimByKey := func(key string) (int, bool) {
		for _, i := range byKey[key] {
			if !claimed[i] {
				return i, true
			}
		}
		return 0, false
	}

	var plan fieldPlan
	for _, in := range submitted {
		idx, ok := -1, false
		if in.ID != 0 {
			if i, found := byID[in.ID]; found && !claimed[i] {
				idx, ok = i, true
			}
		}
		if !ok {
			idx, ok = claimByKey(in.Key)
		}

		if !ok {
			plan.upserts = append(plan.upserts, models.ContactCustomField{ContactID: contactID, Key: in.Key, Value: in.Value})
			continue
		}
		claimed[idx] = true
		cur := existing[idx]
		if cur.Key == in.Key && cur.Value == in.Value {
			continue
		}
		cur.Key, cur.Value = in.Key, in.Value
		plan.upserts = append(plan.upserts, cur)
	}
	for i, f := range existing {
		if !claimed[i] {
			plan.deletes = append(plan.deletes, f.ID)
		}
	}
	return plan
}

// reconcile 每个字段的写入相互独立，并发执行，全部完成后才返回
func (s *ContactService) reconcile(ctx context.Context, contact *models.Contact, submitted []CustomFieldInput) error {
	plan := planFields(contact.ID, contact.ExtraInfo, submitted)

	g, gctx := errgroup.WithContext(ctx)
	for i := range plan.upserts {
		field := &plan.upserts[i]
		g.Go(func() error {
			return s.contacts.UpsertField(gctx, field)
		})
	}
	for _, id := range plan.deletes {
		id := id
		g.Go(func() error {
			return s.contacts.DeleteField(gctx, id)
		})
	}
	return g.Wait()
}

// Delete 附加信息一起删除，工单保留但解除关联
func (s *ContactService) Delete(ctx context.Context, id uint) (events.Outbox, error) {
	if _, err := s.contacts.FindByID(ctx, id, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if err := s.contacts.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("delete contact: %w", err)
	}
	return events.Of(events.ContactDeleted(id)), nil
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ImportFromPhone 把默认会话手机通讯录中还不存在的号码导入为联系人，
// 单个号码失败只计数，已导入的照常产生事件
func (s *ContactService) ImportFromPhone(ctx context.Context) (*ImportResult, events.Outbox, error) {
	_, client, err := defaultSession(ctx, s.connector)
	if err != nil {
		return nil, nil, err
	}
	phoneContacts, err := client.GetContacts(ctx)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to read phone contacts")
		return nil, nil, ErrConnectorUnavailable
	}

	result := &ImportResult{}
	var box events.Outbox
	for _, pc := range phoneContacts {
		number := strings.TrimSpace(pc.Number)
		if !phonePattern.MatchString(number) {
			result.Skipped++
			continue
		}
		exists, err := s.contacts.ExistsByNumber(ctx, number)
		if err != nil {
			logger.WithContext(ctx).WithError(err).WithField("number", number).Error("failed to check contact")
			result.Failed++
			continue
		}
		if exists {
			result.Skipped++
			continue
		}
		contact := &models.Contact{Name: pc.Name, Number: number}
		if err := s.contacts.Create(ctx, contact); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				result.Skipped++
				continue
			}
			logger.WithContext(ctx).WithError(err).WithField("number", number).Error("failed to import contact")
			result.Failed++
			continue
		}
		result.Imported++
		box.Add(events.ContactChanged(events.ActionCreate, contact))
	}
	return result, box, nil
}
