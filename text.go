package main

// Page copy that is not part of the résumé content itself.
var (
	SiteTitle    = "个人简历"
	SiteIntro    = "我是一名热爱前端开发和 3D 技术的开发者，致力于创造优秀的用户体验。"
	SkillsTitle  = "技能展示"
	SkillsIntro  = "掌握现代前端技术栈，专注于用户体验和性能优化"
	AwardsTitle  = "获奖经历"
	ProjectTitle = "项目展示"
	AboutTitle   = "关于我"
	ContactTitle = "联系方式"
	LoadingText  = "加载中..."

	ContactSuccess = "Thank you for your message! I'll get back to you soon."
	ContactFailure = "Sorry, there was an error sending your message. Please try again later."
	ContactInvalid = "Please fill in your name, a valid email address and a message."
)
