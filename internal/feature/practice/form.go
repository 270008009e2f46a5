package practice

import (
	"gp-directory/internal/domain"
)

// Form 后台新增/编辑表单，字段名与数据库列一致
type Form struct {
	PracticeCode    string `form:"practice_code"`
	PracticeName    string `form:"practice_name"`
	PartnershipName string `form:"partnership_name"`
	Neighbourhood   string `form:"neighbourhood"`
	Area            string `form:"area"`
	AddressLine1    string `form:"address_line1"`
	AddressLine2    string `form:"address_line2"`
	AddressLine3    string `form:"address_line3"`
	Postcode        string `form:"postcode"`
	Telephone       string `form:"telephone"`
	Email           string `form:"email"`
	Region          string `form:"region"`
}

func (f Form) Fields() domain.PracticeFields {
	return domain.PracticeFields{
		PracticeCode:    f.PracticeCode,
		PracticeName:    f.PracticeName,
		PartnershipName: f.PartnershipName,
		Neighbourhood:   f.Neighbourhood,
		Area:            f.Area,
		AddressLine1:    f.AddressLine1,
		AddressLine2:    f.AddressLine2,
		AddressLine3:    f.AddressLine3,
		Postcode:        f.Postcode,
		Telephone:       f.Telephone,
		Email:           f.Email,
		Region:          f.Region,
	}
}

// FromPractice 编辑页回填；NULL 显示为空
func FromPractice(p *domain.Practice) Form {
	if p == nil {
		return Form{}
	}
	return Form{
		PracticeCode:    deref(p.PracticeCode),
		PracticeName:    p.PracticeName,
		PartnershipName: deref(p.PartnershipName),
		Neighbourhood:   deref(p.Neighbourhood),
		Area:            deref(p.Area),
		AddressLine1:    deref(p.AddressLine1),
		AddressLine2:    deref(p.AddressLine2),
		AddressLine3:    deref(p.AddressLine3),
		Postcode:        deref(p.Postcode),
		Telephone:       deref(p.Telephone),
		Email:           deref(p.Email),
		Region:          deref(p.Region),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
