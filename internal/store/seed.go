package store

import "context"

// AvatarColors 是分配给新成员的头像颜色盘（Tailwind class 名，
// 前端直接渲染）。按随机下标取用。
var AvatarColors = []string{
	"bg-blue-400", "bg-yellow-400", "bg-indigo-400", "bg-pink-400", "bg-green-400",
	"bg-purple-400", "bg-red-400", "bg-cyan-400", "bg-teal-400", "bg-orange-400",
	"bg-lime-400", "bg-emerald-400", "bg-sky-500", "bg-rose-400", "bg-amber-400",
	"bg-fuchsia-400", "bg-violet-400", "bg-blue-500", "bg-green-500", "bg-slate-400",
	"bg-stone-400", "bg-zinc-400", "bg-neutral-400",
}

// InitialUsers 是首次启动时写入名册的团队成员。
var InitialUsers = []User{
	{ID: "1", Name: "고권아", AvatarColor: "bg-blue-400", MainGoal: "2026년 알차게 보내기"},
	{ID: "2", Name: "고정후", AvatarColor: "bg-yellow-400", MainGoal: "꾸준히 성장하는 한 해"},
	{ID: "3", Name: "권예인", AvatarColor: "bg-indigo-400", MainGoal: "건강하고 행복하게"},
	{ID: "4", Name: "김동영", AvatarColor: "bg-pink-400", MainGoal: "새로운 도전 시작하기"},
	{ID: "5", Name: "김보란", AvatarColor: "bg-green-400", MainGoal: "나만의 경쟁력 갖추기"},
	{ID: "6", Name: "김예지", AvatarColor: "bg-purple-400", MainGoal: "매일매일 발전하기"},
	{ID: "7", Name: "김해담", AvatarColor: "bg-red-400", MainGoal: "긍정적인 마인드 갖기"},
	{ID: "8", Name: "박건영", AvatarColor: "bg-cyan-400", MainGoal: "전문성 레벨업"},
	{ID: "9", Name: "박미지", AvatarColor: "bg-teal-400", MainGoal: "워라밸 챙기기"},
	{ID: "10", Name: "박상수", AvatarColor: "bg-orange-400", MainGoal: "재테크 성공하기"},
	{ID: "11", Name: "박종혁", AvatarColor: "bg-lime-400", MainGoal: "외국어 마스터하기"},
	{ID: "12", Name: "변경도", AvatarColor: "bg-emerald-400", MainGoal: "꾸준한 운동 습관"},
	{ID: "13", Name: "송승연", AvatarColor: "bg-sky-500", MainGoal: "많은 책 읽기"},
	{ID: "14", Name: "신민정", AvatarColor: "bg-rose-400", MainGoal: "자격증 취득하기"},
	{ID: "15", Name: "이소림", AvatarColor: "bg-amber-400", MainGoal: "취미 생활 즐기기"},
	{ID: "16", Name: "이우진", AvatarColor: "bg-fuchsia-400", MainGoal: "좋은 습관 만들기"},
	{ID: "17", Name: "임채진", AvatarColor: "bg-violet-400", MainGoal: "스트레스 관리 잘하기"},
	{ID: "18", Name: "차현지", AvatarColor: "bg-blue-500", MainGoal: "소중한 사람들과 시간 보내기"},
	{ID: "19", Name: "최기석", AvatarColor: "bg-green-500", MainGoal: "성공적인 프로젝트 완수"},
	{ID: "20", Name: "최진학", AvatarColor: "bg-slate-400", MainGoal: "리더십 키우기"},
	{ID: "21", Name: "한승연", AvatarColor: "bg-stone-400", MainGoal: "창의적인 아이디어 내기"},
	{ID: "22", Name: "현영서", AvatarColor: "bg-zinc-400", MainGoal: "효율적인 시간 관리"},
	{ID: "23", Name: "박상우", AvatarColor: "bg-neutral-400", MainGoal: "멘토링 적극 참여하기"},
	{ID: "24", Name: "박창윤", AvatarColor: "bg-blue-400", MainGoal: "네트워킹 넓히기"},
	{ID: "25", Name: "김성환", AvatarColor: "bg-yellow-400", MainGoal: "기술 블로그 운영하기"},
	{ID: "26", Name: "김진우", AvatarColor: "bg-indigo-400", MainGoal: "오픈소스 기여하기"},
	{ID: "27", Name: "박세영", AvatarColor: "bg-pink-400", MainGoal: "알고리즘 문제 풀기"},
	{ID: "28", Name: "고한솔", AvatarColor: "bg-green-400", MainGoal: "풀스택 개발 도전"},
}

// SeedUsers 在名册为空时写入初始成员。幂等：已有任何成员则不动。
func SeedUsers(ctx context.Context, s Store) (int, error) {
	existing, err := s.GetUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, u := range InitialUsers {
		if err := s.CreateUser(ctx, u); err != nil {
			return 0, err
		}
	}
	return len(InitialUsers), nil
}
